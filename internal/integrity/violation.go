package integrity

import "fmt"

// Rule identifies which integrity requirement a Violation breaks.
type Rule string

const (
	RuleMissingCategory      Rule = "missing-category"
	RuleMissingQuestions     Rule = "missing-questions"
	RuleMissingQuestionText  Rule = "missing-question-text"
	RuleMissingAnswers       Rule = "missing-answers"
	RuleMissingAnswerValue   Rule = "missing-answer-value"
	RuleMissingAnswerCorrect Rule = "missing-answer-correct"
	RuleNoCorrectAnswer      Rule = "no-correct-answer"

	// RuleQuestionsNotSequence and RuleAnswersNotSequence flag keys that
	// exist but hold something other than a list.
	RuleQuestionsNotSequence Rule = "questions-not-sequence"
	RuleAnswersNotSequence   Rule = "answers-not-sequence"

	// RuleTypeMismatch is reported by the TypeChecker.
	RuleTypeMismatch Rule = "type-mismatch"
)

// Location points at the part of a document a Violation refers to.
// Indexes are 1-based; 0 means the violation is not about a question
// (or not about an answer).
type Location struct {
	Question int `json:"question,omitempty"`
	Answer   int `json:"answer,omitempty"`
}

func (l Location) String() string {
	switch {
	case l.Question == 0:
		return "document"
	case l.Answer == 0:
		return fmt.Sprintf("question %d", l.Question)
	default:
		return fmt.Sprintf("question %d, answer %d", l.Question, l.Answer)
	}
}

// Violation is one integrity failure found in a question-bank file.
type Violation struct {
	File     string   `json:"file"`
	Location Location `json:"location"`
	Rule     Rule     `json:"rule"`
	Message  string   `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s] %s", v.Location, v.Rule, v.Message)
}
