package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/qbank/internal/config"
	"github.com/abhisek/qbank/internal/integrity"
	"github.com/abhisek/qbank/internal/metrics"
	"github.com/abhisek/qbank/internal/report"
	"github.com/abhisek/qbank/internal/store"
	"github.com/abhisek/qbank/internal/suite"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Validate every question bank file under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := dataDirArg(args)
		cfg, err := loadConfig(cmd, dir)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			dir = cfg.DataDir
		}
		if err := applyCheckFlags(cmd, &cfg); err != nil {
			return err
		}

		var runs store.RunRepo
		if noRecord, _ := cmd.Flags().GetBool("no-record"); !noRecord {
			s, err := openStore(cmd, &cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			runs = s.RunRepo()
		}

		return runCheck(cmd.Context(), cmd.OutOrStdout(), dir, cfg, runs)
	},
}

func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("pattern") {
		cfg.Patterns, _ = f.GetStringArray("pattern")
	}
	if f.Changed("types") {
		cfg.Types, _ = f.GetBool("types")
	}
	if f.Changed("format") {
		cfg.Format, _ = f.GetString("format")
	}
	if f.Changed("no-color") {
		cfg.NoColor, _ = f.GetBool("no-color")
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile, _ = f.GetString("metrics-file")
	}
	return cfg.Validate()
}

// runCheck checks dir, renders the report to w, and records the run when
// runs is non-nil. It returns ErrChecksFailed when any file failed.
func runCheck(ctx context.Context, w io.Writer, dir string, cfg config.Config, runs store.RunRepo) error {
	runner := &suite.Runner{Workers: cfg.Workers, Log: log}
	if cfg.Types {
		tc, err := integrity.NewTypeChecker()
		if err != nil {
			return fmt.Errorf("load type schema: %w", err)
		}
		runner.Types = tc
	}

	rep, err := runner.RunDir(ctx, dir, cfg.Patterns)
	if err != nil {
		return err
	}

	if err := render(w, rep, cfg); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, rep); err != nil {
			return err
		}
	}

	if runs != nil {
		rec := runRecord(rep)
		if err := runs.SaveRun(ctx, rec); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		log.WithField("run", rec.ID).Debug("run recorded")
		if cfg.KeepRuns > 0 {
			if err := runs.PruneRuns(ctx, cfg.KeepRuns); err != nil {
				log.WithError(err).Warn("could not prune run history")
			}
		}
	}

	if !rep.OK() {
		return ErrChecksFailed
	}
	return nil
}

func render(w io.Writer, rep *suite.Report, cfg config.Config) error {
	if cfg.Format == config.FormatJSON {
		return report.WriteJSON(w, rep)
	}
	return report.WriteText(w, rep, report.TextOptions{Color: useColor(w, cfg)})
}

// useColor reports whether text output to w should be coloured.
func useColor(w io.Writer, cfg config.Config) bool {
	return !cfg.NoColor && isTerminal(w)
}

// runRecord converts a finished report into its stored form.
func runRecord(rep *suite.Report) *store.RunRecord {
	rec := &store.RunRecord{
		Root:        rep.Root,
		StartedAt:   rep.Started,
		Duration:    rep.Duration,
		Files:       len(rep.Files),
		FailedFiles: rep.Failed(),
		Violations:  rep.ViolationCount(),
		Results:     make([]store.FileRecord, 0, len(rep.Files)),
	}
	for _, f := range rep.Files {
		fr := store.FileRecord{File: f.File, Passed: f.Passed()}
		if f.LoadErr != nil {
			fr.LoadError = f.LoadErr.Error()
		}
		for _, v := range f.Violations {
			fr.Violations = append(fr.Violations, store.ViolationRecord{
				Question: v.Location.Question,
				Answer:   v.Location.Answer,
				Rule:     string(v.Rule),
				Message:  v.Message,
			})
		}
		rec.Results = append(rec.Results, fr)
	}
	return rec
}

// suiteReport rebuilds a report from a stored run so it can be rendered
// like a fresh one.
func suiteReport(run *store.RunRecord) *suite.Report {
	rep := &suite.Report{Root: run.Root, Started: run.StartedAt, Duration: run.Duration}
	for _, fr := range run.Results {
		f := suite.FileResult{File: fr.File}
		if fr.LoadError != "" {
			f.LoadErr = errors.New(fr.LoadError)
		}
		for _, v := range fr.Violations {
			f.Violations = append(f.Violations, integrity.Violation{
				File:     fr.File,
				Location: integrity.Location{Question: v.Question, Answer: v.Answer},
				Rule:     integrity.Rule(v.Rule),
				Message:  v.Message,
			})
		}
		rep.Files = append(rep.Files, f)
	}
	return rep
}

func init() {
	f := checkCmd.Flags()
	f.StringArrayP("pattern", "p", nil, "File name glob to check (repeatable, default *.yml)")
	f.Bool("types", false, "Also check value types against the bundled JSON schema")
	f.StringP("format", "f", config.FormatText, "Output format: text or json")
	f.Bool("no-color", false, "Disable colored output")
	f.IntP("workers", "w", 0, "Files checked in parallel (default GOMAXPROCS)")
	f.Bool("no-record", false, "Do not save the run to history")
	f.String("metrics-file", "", "Write Prometheus text metrics for the run to this file")
}
