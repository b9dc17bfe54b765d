package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/qbank/internal/audit"
	"github.com/abhisek/qbank/internal/config"
	"github.com/abhisek/qbank/internal/llm"
	"github.com/abhisek/qbank/internal/suite"
)

var auditCmd = &cobra.Command{
	Use:   "audit [dir]",
	Short: "Ask an LLM to review the answer keys of valid question banks",
	Long: "audit checks the question banks first and sends every question of the files that pass\n" +
		"to the configured LLM provider, reporting questions whose marked answers it disputes.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := dataDirArg(args)
		cfg, err := loadConfig(cmd, dir)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			dir = cfg.DataDir
		}
		f := cmd.Flags()
		if f.Changed("limit") {
			cfg.Audit.Limit, _ = f.GetInt("limit")
		}
		if f.Changed("format") {
			cfg.Format, _ = f.GetString("format")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if !cfg.LLM.DiscoverKey() {
			return fmt.Errorf("no API key for the %s provider; set QBANK_%s_API_KEY", cfg.LLM.Provider, envName(cfg.LLM.Provider))
		}

		s, err := openStore(cmd, &cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		provider, err := llm.NewProvider(ctx, cfg.LLM, s.EventRepo(), log)
		if err != nil {
			return fmt.Errorf("LLM provider: %w", err)
		}
		return runAudit(ctx, cmd.OutOrStdout(), dir, cfg, provider)
	},
}

func runAudit(ctx context.Context, w io.Writer, dir string, cfg config.Config, provider llm.Provider) error {
	checked, err := (&suite.Runner{Workers: cfg.Workers, Log: log}).RunDir(ctx, dir, cfg.Patterns)
	if err != nil {
		return err
	}

	acfg := audit.DefaultConfig()
	acfg.Limit = cfg.Audit.Limit
	if cfg.Audit.Timeout > 0 {
		acfg.Timeout = cfg.Audit.Timeout
	}
	if cfg.Audit.MaxTokens > 0 {
		acfg.MaxTokens = cfg.Audit.MaxTokens
	}

	res, err := audit.New(provider, acfg, log).Audit(ctx, checked)
	if err != nil {
		return err
	}

	if cfg.Format == config.FormatText && len(res.Report.Files) == 0 {
		fmt.Fprintln(w, "No questions were reviewed.")
	} else if err := render(w, res.Report, cfg); err != nil {
		return err
	}
	if cfg.Format == config.FormatText {
		fmt.Fprintf(w, "%d reviewed, %d disputed, %d failed to review, %d files skipped (failing checks)\n",
			res.Reviewed, res.Disputed, res.Errored, res.Skipped)
	}

	if res.Disputed > 0 {
		return ErrChecksFailed
	}
	return nil
}

func envName(provider string) string {
	switch provider {
	case llm.ProviderOpenAI:
		return "OPENAI"
	case llm.ProviderGemini:
		return "GEMINI"
	case llm.ProviderOpenRouter:
		return "OPENROUTER"
	}
	return "ANTHROPIC"
}

func init() {
	auditCmd.Flags().IntP("limit", "n", 0, "Review at most this many questions (0 = all)")
	auditCmd.Flags().StringP("format", "f", config.FormatText, "Output format: text or json")
}
