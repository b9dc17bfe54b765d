package llm

import (
	"context"
	"strconv"
)

// PurposeAnswerAudit labels calls that review a question's answer key.
const PurposeAnswerAudit = "answer-audit"

type (
	purposeKey struct{}
	subjectKey struct{}
)

// WithPurpose labels the LLM calls made with ctx, e.g. PurposeAnswerAudit.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok {
		return v
	}
	return "unknown"
}

// WithSubject names what the calls made with ctx are about, such as
// Subject("php.yml", 3). It is recorded with each request event.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the subject set by WithSubject, or "".
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// Subject formats the subject for question n of a question-bank file.
func Subject(file string, n int) string {
	return file + "#" + strconv.Itoa(n)
}
