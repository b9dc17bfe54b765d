// Package audit asks a language model whether the answers marked correct
// in a question bank are actually right.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/abhisek/qbank/internal/integrity"
	"github.com/abhisek/qbank/internal/llm"
	"github.com/abhisek/qbank/internal/suite"
	"github.com/abhisek/qbank/internal/yamldoc"
	"github.com/sirupsen/logrus"
)

// RuleAnswerKeyDisputed marks a question whose answer key the model
// disagrees with.
const RuleAnswerKeyDisputed integrity.Rule = "answer-key-disputed"

// Verdict is the model's opinion of a question's answer key.
type Verdict string

const (
	VerdictAgree    Verdict = "agree"
	VerdictDisagree Verdict = "disagree"
	VerdictUnsure   Verdict = "unsure"
)

// Config tunes the Auditor.
type Config struct {
	MaxTokens   int
	Temperature float64
	// Timeout bounds each review, retries included.
	Timeout time.Duration
	// Limit caps the number of questions reviewed in one Audit. 0 means no cap.
	Limit int
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   400,
		Temperature: 0.2,
		Timeout:     60 * time.Second,
	}
}

// Review is the model's verdict on one question.
type Review struct {
	Verdict Verdict `json:"verdict"`
	// SuggestedCorrect holds 1-based answer numbers. Numbers outside the
	// question's answers are dropped.
	SuggestedCorrect []int  `json:"suggested_correct"`
	Rationale        string `json:"rationale"`
}

// Disputed reports whether the review contradicts the answer key.
func (r Review) Disputed() bool {
	return r.Verdict == VerdictDisagree
}

// Auditor reviews answer keys one question at a time.
type Auditor struct {
	provider llm.Provider
	cfg      Config
	log      logrus.FieldLogger
}

func New(provider llm.Provider, cfg Config, log logrus.FieldLogger) *Auditor {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Auditor{provider: provider, cfg: cfg, log: log}
}

// Review sends q to the model and returns its parsed verdict.
func (a *Auditor) Review(ctx context.Context, q Question) (*Review, error) {
	ctx = llm.WithSubject(llm.WithPurpose(ctx, llm.PurposeAnswerAudit), llm.Subject(q.File, q.Number))
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	msg, err := reviewMessage(q)
	if err != nil {
		return nil, fmt.Errorf("build review prompt: %w", err)
	}

	resp, err := a.provider.Generate(ctx, llm.Request{
		System:      reviewSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      ReviewSchema,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("review question %d of %s: %w", q.Number, q.File, err)
	}

	var r Review
	if err := json.Unmarshal(resp.Content, &r); err != nil {
		return nil, fmt.Errorf("parse review response: %w", err)
	}
	r.SuggestedCorrect = slices.DeleteFunc(r.SuggestedCorrect, func(n int) bool {
		return n < 1 || n > len(q.Answers)
	})
	slices.Sort(r.SuggestedCorrect)
	r.SuggestedCorrect = slices.Compact(r.SuggestedCorrect)

	// A "disagree" that names exactly the marked answers is not a dispute.
	if r.Verdict == VerdictDisagree && len(r.SuggestedCorrect) > 0 && slices.Equal(r.SuggestedCorrect, q.Marked()) {
		r.Verdict = VerdictAgree
	}
	return &r, nil
}

// Result summarises an Audit.
type Result struct {
	// Report holds one FileResult per file with at least one completed
	// review, with a violation for every disputed question. Files not
	// reached before the limit are left out.
	Report *suite.Report

	Reviewed int
	Disputed int
	// Errored counts questions whose review failed.
	Errored int
	// Skipped counts files left out because they failed the integrity
	// checks. Files not reached before the limit are not counted.
	Skipped int
}

// Audit reviews every question of the files in rep that passed the
// integrity checks. A failed review is logged and counted, and does not
// stop the audit; cancellation does.
func (a *Auditor) Audit(ctx context.Context, rep *suite.Report) (*Result, error) {
	res := &Result{Report: &suite.Report{Root: rep.Root, Started: time.Now()}}

	for _, f := range rep.Files {
		if a.limitReached(res) {
			break
		}
		if !f.Passed() {
			res.Skipped++
			a.log.WithField("file", f.File).Debug("skipping file with integrity violations")
			continue
		}

		doc, err := yamldoc.Load(f.Path)
		if err != nil {
			res.Report.Files = append(res.Report.Files, suite.FileResult{File: f.File, Path: f.Path, LoadErr: err})
			continue
		}

		out := suite.FileResult{File: f.File, Path: f.Path}
		reviewed := 0
		for _, q := range Questions(doc, f.File) {
			if a.limitReached(res) {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("audit interrupted: %w", err)
			}

			log := a.log.WithFields(logrus.Fields{"file": q.File, "question": q.Number})
			r, err := a.Review(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("audit interrupted: %w", ctx.Err())
				}
				log.WithError(err).Warn("answer review failed")
				res.Errored++
				continue
			}

			res.Reviewed++
			reviewed++
			log.WithField("verdict", r.Verdict).Debug("answer reviewed")
			if r.Disputed() {
				res.Disputed++
				out.Violations = append(out.Violations, Finding(q, *r))
			}
		}

		// Only files with at least one completed review are reported.
		if reviewed > 0 {
			res.Report.Files = append(res.Report.Files, out)
		}
	}

	res.Report.Duration = time.Since(res.Report.Started)
	return res, nil
}

func (a *Auditor) limitReached(res *Result) bool {
	return a.cfg.Limit > 0 && res.Reviewed+res.Errored >= a.cfg.Limit
}

// Finding turns a disputed review into a violation of q's file.
func Finding(q Question, r Review) integrity.Violation {
	msg := fmt.Sprintf("Question %q - answer key disputed", q.Text)
	if len(r.SuggestedCorrect) > 0 {
		nums := make([]string, len(r.SuggestedCorrect))
		for i, n := range r.SuggestedCorrect {
			nums[i] = fmt.Sprint(n)
		}
		msg += fmt.Sprintf(" (suggested correct: %s)", strings.Join(nums, ", "))
	}
	if r.Rationale != "" {
		msg += ": " + r.Rationale
	}
	return integrity.Violation{
		File:     q.File,
		Location: integrity.Location{Question: q.Number},
		Rule:     RuleAnswerKeyDisputed,
		Message:  msg,
	}
}

const reviewSystemPrompt = `You review certification exam questions. Each question lists numbered answers and marks which ones the author considers correct.

Instructions:
- Answer "agree" when the marked answers are exactly the correct ones.
- Answer "disagree" when any marked answer is wrong or a correct answer is not marked, and list the answer numbers that should be correct.
- Answer "unsure" when the question is ambiguous or depends on a version or context that is not given.
- Keep the rationale to one or two sentences.`

var reviewTemplate = template.Must(template.New("review").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Category file: {{.File}}
Question: {{.Text}}

Answers:
{{range $i, $a := .Answers}}{{inc $i}}. {{$a.Value}}{{if $a.Correct}} [marked correct]{{end}}
{{end}}`))

func reviewMessage(q Question) (string, error) {
	var buf bytes.Buffer
	if err := reviewTemplate.Execute(&buf, q); err != nil {
		return "", err
	}
	return buf.String(), nil
}
