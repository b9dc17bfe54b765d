package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/qbank/internal/config"
	"github.com/abhisek/qbank/internal/report"
	"github.com/abhisek/qbank/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openConfiguredStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.RunRepo().ListRuns(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "No check runs recorded yet.")
			return nil
		}

		fmt.Fprintf(w, "%-36s  %-19s  %5s  %6s  %10s  %8s  %s\n",
			"Run", "Started", "Files", "Failed", "Violations", "Ms", "Root")
		fmt.Fprintln(w, strings.Repeat("─", 110))
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s  %-19s  %5d  %6d  %10d  %8d  %s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Files, r.FailedFiles, r.Violations,
				r.Duration.Milliseconds(),
				r.Root)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full report of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}
		failuresOnly, _ := cmd.Flags().GetBool("failures")

		cfg, err := loadConfig(cmd, dataDirArg(nil))
		if err != nil {
			return err
		}
		s, err := openStore(cmd, &cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		return showRun(cmd.Context(), cmd.OutOrStdout(), s.RunRepo(), id, cfg, failuresOnly)
	},
}

func showRun(ctx context.Context, w io.Writer, runs store.RunRepo, id uuid.UUID, cfg config.Config, failuresOnly bool) error {
	run, err := runs.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	fmt.Fprintf(w, "Run %s  %s  %s\n\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Root)
	return report.WriteText(w, suiteReport(run), report.TextOptions{
		Color:        useColor(w, cfg),
		FailuresOnly: failuresOnly,
	})
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	historyShowCmd.Flags().Bool("failures", false, "Only show files that failed")
	historyCmd.AddCommand(historyShowCmd)
}
