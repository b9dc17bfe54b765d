// Package config loads qbank settings from qbank.toml and QBANK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/abhisek/qbank/internal/llm"
)

// FileName is the config file looked up in the data directory.
const FileName = "qbank.toml"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the merged qbank configuration.
type Config struct {
	// DataDir is the question-bank directory used when none is given on
	// the command line.
	DataDir  string   `toml:"data_dir"`
	Patterns []string `toml:"patterns"`
	Types    bool     `toml:"types"`
	Workers  int      `toml:"workers"`
	Format   string   `toml:"format"`
	NoColor  bool     `toml:"no_color"`

	// DB overrides the store location.
	DB string `toml:"db"`
	// KeepRuns prunes check history to the newest N runs. 0 keeps all.
	KeepRuns int `toml:"keep_runs"`
	// MetricsFile receives Prometheus text metrics after each check.
	MetricsFile string `toml:"metrics_file"`

	LLM   llm.Config  `toml:"llm"`
	Audit AuditConfig `toml:"audit"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
	// Unknown lists keys in the file that qbank does not understand.
	Unknown []string `toml:"-"`
}

type AuditConfig struct {
	Limit     int           `toml:"limit"`
	Timeout   time.Duration `toml:"timeout"`
	MaxTokens int           `toml:"max_tokens"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  "data",
		Patterns: []string{"*.yml"},
		Format:   FormatText,
		KeepRuns: 200,
		LLM:      llm.DefaultConfig(),
		Audit: AuditConfig{
			Timeout:   60 * time.Second,
			MaxTokens: 400,
		},
	}
}

// Load builds the configuration. The file is taken from path when set,
// then QBANK_CONFIG, then <dataDir>/qbank.toml if that exists. A missing
// explicit file is an error; a missing implicit one is not. Environment
// variables are applied on top of the file.
func Load(path, dataDir string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("QBANK_CONFIG")
		explicit = path != ""
	}
	if !explicit && dataDir != "" {
		path = filepath.Join(dataDir, FileName)
	}

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
			cfg.Path = path
			for _, k := range md.Undecoded() {
				cfg.Unknown = append(cfg.Unknown, k.String())
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("QBANK_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("QBANK_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("QBANK_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv("QBANK_PATTERNS"); v != "" {
		c.Patterns = strings.Split(v, ",")
	}
	if v := os.Getenv("QBANK_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("QBANK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QBANK_WORKERS: %w", err)
		}
		c.Workers = n
	}
	for _, name := range []string{"QBANK_TYPES", "QBANK_NO_COLOR"} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if name == "QBANK_TYPES" {
			c.Types = b
		} else {
			c.NoColor = b
		}
	}
	if os.Getenv("NO_COLOR") != "" {
		c.NoColor = true
	}
	c.LLM.ApplyEnv()
	return nil
}

// Validate rejects settings no command could run with. LLM keys are
// checked only when a command needs a provider.
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Format, FormatText, FormatJSON)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.KeepRuns < 0 {
		return fmt.Errorf("keep_runs must not be negative, got %d", c.KeepRuns)
	}
	for _, p := range c.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}
