// Package suite loads every question-bank file under a directory, checks
// each one, and collects the results into a Report.
package suite

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"github.com/abhisek/qbank/internal/integrity"
	"github.com/abhisek/qbank/internal/source"
	"github.com/abhisek/qbank/internal/yamldoc"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of checking one file.
type FileResult struct {
	// File labels the file in violations and reports: the path relative to
	// the data directory, slash-separated.
	File       string
	Path       string
	Violations []integrity.Violation
	// LoadErr is set when the file could not be read or parsed. It is
	// reported separately from violations.
	LoadErr error
}

// Passed reports whether the file loaded and has no violations.
func (r FileResult) Passed() bool {
	return r.LoadErr == nil && len(r.Violations) == 0
}

// Report aggregates the results of one run, in discovery order.
type Report struct {
	Root     string
	Started  time.Time
	Duration time.Duration
	Files    []FileResult
}

// Passed returns the number of files that passed.
func (r *Report) Passed() int {
	n := 0
	for _, f := range r.Files {
		if f.Passed() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed.
func (r *Report) Failed() int {
	return len(r.Files) - r.Passed()
}

// ViolationCount returns the total number of violations across files.
// Load errors are not counted.
func (r *Report) ViolationCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Violations)
	}
	return n
}

// OK reports whether every file passed.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

// Runner checks question-bank files.
type Runner struct {
	// Workers bounds how many files are checked at once.
	// Default: runtime.GOMAXPROCS(0).
	Workers int

	// Types, when set, adds type-mismatch violations after the structural
	// ones.
	Types *integrity.TypeChecker

	Log logrus.FieldLogger
}

// RunDir discovers the files under root matching patterns and checks them.
func (r *Runner) RunDir(ctx context.Context, root string, patterns []string) (*Report, error) {
	paths, err := source.Discover(root, patterns)
	if err != nil {
		return nil, err
	}
	r.logger().WithFields(logrus.Fields{
		"root":  root,
		"files": len(paths),
	}).Debug("discovered question bank files")
	return r.Run(ctx, root, paths)
}

// Run checks each path. Failures to load a file are recorded in its
// FileResult and do not stop the run; only cancellation does.
func (r *Runner) Run(ctx context.Context, root string, paths []string) (*Report, error) {
	rep := &Report{
		Root:    root,
		Started: time.Now(),
		Files:   make([]FileResult, len(paths)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep.Files[i] = r.CheckFile(root, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check run interrupted: %w", err)
	}
	rep.Duration = time.Since(rep.Started)

	r.logger().WithFields(logrus.Fields{
		"files":      len(rep.Files),
		"failed":     rep.Failed(),
		"violations": rep.ViolationCount(),
		"duration":   rep.Duration,
	}).Debug("check run finished")
	return rep, nil
}

// CheckFile loads and checks a single file.
func (r *Runner) CheckFile(root, path string) FileResult {
	res := FileResult{File: label(root, path), Path: path}
	log := r.logger().WithField("file", res.File)

	doc, err := yamldoc.Load(path)
	if err != nil {
		log.WithError(err).Warn("could not load question bank")
		res.LoadErr = err
		return res
	}

	res.Violations = integrity.Validate(doc, res.File)
	if r.Types != nil {
		res.Violations = append(res.Violations, r.Types.Check(doc, res.File)...)
	}
	if len(res.Violations) > 0 {
		log.WithField("violations", len(res.Violations)).Debug("question bank has violations")
	}
	return res
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log != nil {
		return r.Log
	}
	return quiet
}

var quiet = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func label(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}
