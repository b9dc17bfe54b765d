// Package report renders check runs for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abhisek/qbank/internal/integrity"
	"github.com/abhisek/qbank/internal/suite"
)

// TextOptions configures WriteText.
type TextOptions struct {
	Color bool
	// FailuresOnly hides files that passed.
	FailuresOnly bool
}

// WriteText writes one status line per file, one indented line per
// violation, and a closing summary.
func WriteText(w io.Writer, rep *suite.Report, opts TextOptions) error {
	st := newStyles(opts.Color)
	var b strings.Builder

	if len(rep.Files) == 0 {
		fmt.Fprintf(&b, "No question bank files found under %s\n", rep.Root)
	}

	for _, f := range rep.Files {
		switch {
		case f.LoadErr != nil:
			fmt.Fprintf(&b, "%s %s\n", st.loadErr.Render("ERROR"), f.File)
			fmt.Fprintf(&b, "      %s\n", st.dim.Render(f.LoadErr.Error()))
		case len(f.Violations) > 0:
			fmt.Fprintf(&b, "%s  %s\n", st.fail.Render("FAIL"), f.File)
			for _, v := range f.Violations {
				fmt.Fprintf(&b, "      %s %s  %s\n",
					st.dim.Render(fmt.Sprintf("%-22s", v.Location)), st.rule.Render(string(v.Rule)), v.Message)
			}
		case !opts.FailuresOnly:
			fmt.Fprintf(&b, "%s  %s\n", st.pass.Render("PASS"), f.File)
		}
	}

	b.WriteString(st.summary.Render(Summary(rep)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary returns a one-line count of files and violations.
func Summary(rep *suite.Report) string {
	return fmt.Sprintf("%d %s, %d passed, %d failed, %d %s",
		len(rep.Files), plural(len(rep.Files), "file", "files"),
		rep.Passed(), rep.Failed(),
		rep.ViolationCount(), plural(rep.ViolationCount(), "violation", "violations"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type jsonReport struct {
	Root       string     `json:"root"`
	Started    time.Time  `json:"started"`
	DurationMs int64      `json:"duration_ms"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Violations int        `json:"violations"`
	Files      []jsonFile `json:"files"`
}

type jsonFile struct {
	File       string                `json:"file"`
	Passed     bool                  `json:"passed"`
	Error      string                `json:"error,omitempty"`
	Violations []integrity.Violation `json:"violations"`
}

// WriteJSON writes rep as an indented JSON object. Violations are always
// an array, never null.
func WriteJSON(w io.Writer, rep *suite.Report) error {
	out := jsonReport{
		Root:       rep.Root,
		Started:    rep.Started.UTC(),
		DurationMs: rep.Duration.Milliseconds(),
		Passed:     rep.Passed(),
		Failed:     rep.Failed(),
		Violations: rep.ViolationCount(),
		Files:      make([]jsonFile, len(rep.Files)),
	}
	for i, f := range rep.Files {
		jf := jsonFile{
			File:       f.File,
			Passed:     f.Passed(),
			Violations: f.Violations,
		}
		if jf.Violations == nil {
			jf.Violations = []integrity.Violation{}
		}
		if f.LoadErr != nil {
			jf.Error = f.LoadErr.Error()
		}
		out.Files[i] = jf
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
