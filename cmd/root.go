package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/qbank/internal/config"
	"github.com/abhisek/qbank/internal/store"
)

// ErrChecksFailed is returned when a command ran to completion but found
// problems in the question bank.
var ErrChecksFailed = errors.New("question bank checks failed")

var rootCmd = &cobra.Command{
	Use:   "qbank",
	Short: "Integrity checks for YAML question banks",
	Long: "qbank validates certification question banks: every file needs a category and questions,\n" +
		"every question needs text and answers, and every question needs at least one correct answer.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

// log is the process logger. Commands hand it to packages as a
// logrus.FieldLogger.
var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrChecksFailed):
		return 1
	default:
		fmt.Fprintln(os.Stderr, "qbank:", err)
		return 2
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QBANK_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to qbank.toml (overrides QBANK_CONFIG env var)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration for a command operating on dataDir.
func loadConfig(cmd *cobra.Command, dataDir string) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, dataDir)
	if err != nil {
		return cfg, err
	}
	if len(cfg.Unknown) > 0 {
		log.WithFields(logrus.Fields{"file": cfg.Path, "keys": cfg.Unknown}).Warn("ignoring unknown config keys")
	}
	return cfg, nil
}

// dataDirArg picks the question-bank directory: the positional argument,
// else QBANK_DATA_DIR, else ./data.
func dataDirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if v := os.Getenv("QBANK_DATA_DIR"); v != "" {
		return v
	}
	return config.Default().DataDir
}

// resolveDBPath returns the database path using --db (highest priority),
// then QBANK_DB or the config file, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" && cfg != nil {
		p = cfg.DB
	}
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	path, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// openConfiguredStore opens the store for commands that do not take a data
// directory, honouring a db setting in the default config file.
func openConfiguredStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd, dataDirArg(nil))
	if err != nil {
		return nil, err
	}
	return openStore(cmd, &cfg)
}
