// Package integrity checks that parsed question-bank documents declare a
// category and questions, that every question has text and answers, that
// every answer has a value and a correct flag, and that every question has
// at least one answer whose correct flag is boolean true.
package integrity

import (
	"errors"
	"fmt"

	"github.com/abhisek/qbank/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// ErrNilDocument is returned by ValidateNode when called without a node.
// It signals a caller bug, not bad question-bank data.
var ErrNilDocument = errors.New("integrity: nil document node")

// Document keys.
const (
	keyCategory  = "category"
	keyQuestions = "questions"
	keyQuestion  = "question"
	keyAnswers   = "answers"
	keyValue     = "value"
	keyCorrect   = "correct"
)

// Validate applies every structural rule to doc and returns the violations
// in the order they were found. An empty result means doc is valid. file
// is used only to label violations.
//
// Malformed input never causes a failure: a document that is not a
// mapping is reported as missing both its category and its questions.
func Validate(doc yamldoc.Value, file string) []Violation {
	c := &collector{file: file}

	if !doc.Has(keyCategory) {
		c.add(Location{}, RuleMissingCategory, fmt.Sprintf("File %q does not have a category", file))
	}

	questions := doc.Get(keyQuestions)
	if !questions.Present() {
		c.add(Location{}, RuleMissingQuestions, fmt.Sprintf("File %q does not have questions", file))
		return c.violations
	}
	if questions.Kind() != yamldoc.Sequence {
		c.add(Location{}, RuleQuestionsNotSequence,
			fmt.Sprintf("File %q - questions must be a list, got %s", file, questions.Kind()))
		return c.violations
	}

	for i, q := range questions.Items() {
		c.checkQuestion(i+1, q)
	}
	return c.violations
}

// ValidateNode is Validate for callers holding a raw yaml.Node.
func ValidateNode(n *yaml.Node, file string) ([]Violation, error) {
	if n == nil {
		return nil, ErrNilDocument
	}
	return Validate(yamldoc.FromNode(n), file), nil
}

type collector struct {
	file       string
	violations []Violation
}

func (c *collector) add(loc Location, rule Rule, msg string) {
	c.violations = append(c.violations, Violation{
		File:     c.file,
		Location: loc,
		Rule:     rule,
		Message:  msg,
	})
}

func (c *collector) checkQuestion(num int, q yamldoc.Value) {
	loc := Location{Question: num}

	if !q.Has(keyQuestion) {
		c.add(loc, RuleMissingQuestionText,
			fmt.Sprintf("File %q - Question number \"%d\" does not have a question", c.file, num))
	}

	answers := q.Get(keyAnswers)
	if !answers.Present() {
		c.add(loc, RuleMissingAnswers,
			fmt.Sprintf("File %q - Question number \"%d\" does not have any answers", c.file, num))
		return
	}

	label := questionLabel(num, q)
	if answers.Kind() != yamldoc.Sequence {
		c.add(loc, RuleAnswersNotSequence,
			fmt.Sprintf("Answers of question %s must be a list, got %s", label, answers.Kind()))
	}

	foundCorrect := false
	for j, a := range answers.Items() {
		aloc := Location{Question: num, Answer: j + 1}
		if !a.Has(keyValue) {
			c.add(aloc, RuleMissingAnswerValue,
				fmt.Sprintf("Answer number \"%d\" in question %s does not have a value key", j+1, label))
		}
		correct := a.Get(keyCorrect)
		if !correct.Present() {
			c.add(aloc, RuleMissingAnswerCorrect,
				fmt.Sprintf("Answer number \"%d\" in question %s does not have a correct key", j+1, label))
		}
		if correct.IsTrue() {
			foundCorrect = true
		}
	}

	if !foundCorrect {
		c.add(loc, RuleNoCorrectAnswer, fmt.Sprintf("Question %s does not have a correct answer", label))
	}
}

// questionLabel names a question by its text, falling back to its number
// when the text is missing or not a scalar.
func questionLabel(num int, q yamldoc.Value) string {
	if text := q.Get(keyQuestion); text.Kind() == yamldoc.Scalar {
		return fmt.Sprintf("%q", text.Text())
	}
	return fmt.Sprintf("number \"%d\"", num)
}
