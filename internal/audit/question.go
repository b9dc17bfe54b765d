package audit

import "github.com/abhisek/qbank/internal/yamldoc"

// Question is a multiple-choice question lifted out of a checked document.
type Question struct {
	File string
	// Number is the 1-based position of the question in its file.
	Number  int
	Text    string
	Answers []Answer
}

type Answer struct {
	Value   string
	Correct bool
}

// Marked returns the 1-based numbers of the answers flagged correct.
func (q Question) Marked() []int {
	var out []int
	for i, a := range q.Answers {
		if a.Correct {
			out = append(out, i+1)
		}
	}
	return out
}

// Questions extracts every question of doc. It assumes doc has already
// passed the integrity checks; anything missing becomes a zero value.
func Questions(doc yamldoc.Value, file string) []Question {
	items := doc.Get("questions").Items()
	out := make([]Question, 0, len(items))
	for i, item := range items {
		q := Question{File: file, Number: i + 1, Text: item.Get("question").Text()}
		for _, a := range item.Get("answers").Items() {
			q.Answers = append(q.Answers, Answer{
				Value:   a.Get("value").Text(),
				Correct: a.Get("correct").IsTrue(),
			})
		}
		out = append(out, q)
	}
	return out
}
