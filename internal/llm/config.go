package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	Provider string `toml:"provider"`

	Anthropic  AnthropicConfig  `toml:"anthropic"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Gemini     GeminiConfig     `toml:"gemini"`
	OpenRouter OpenRouterConfig `toml:"openrouter"`
	Retry      RetryConfig      `toml:"retry"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `toml:"-"`
	Model  string `toml:"model"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `toml:"-"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `toml:"-"`
	Model  string `toml:"model"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `toml:"-"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts"`
	InitialWait time.Duration `toml:"initial_wait"`
	MaxWait     time.Duration `toml:"max_wait"`
	Multiplier  float64       `toml:"multiplier"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// ApplyEnv overlays QBANK_* environment variables onto cfg. API keys are
// only ever read from the environment.
func (c *Config) ApplyEnv() {
	set := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(&c.Provider, "QBANK_LLM_PROVIDER")

	set(&c.Anthropic.APIKey, "QBANK_ANTHROPIC_API_KEY")
	set(&c.Anthropic.Model, "QBANK_ANTHROPIC_MODEL")

	set(&c.OpenAI.APIKey, "QBANK_OPENAI_API_KEY")
	set(&c.OpenAI.Model, "QBANK_OPENAI_MODEL")
	set(&c.OpenAI.BaseURL, "QBANK_OPENAI_BASE_URL")

	set(&c.Gemini.APIKey, "QBANK_GEMINI_API_KEY")
	set(&c.Gemini.Model, "QBANK_GEMINI_MODEL")

	set(&c.OpenRouter.APIKey, "QBANK_OPENROUTER_API_KEY")
	set(&c.OpenRouter.Model, "QBANK_OPENROUTER_MODEL")
}

// ConfigFromEnv returns DefaultConfig with the environment applied.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// DiscoverKey fills in the selected provider's API key from the vendor's
// standard variable (ANTHROPIC_API_KEY and friends) when no QBANK_* key
// was set. It reports whether a key is now available.
func (c *Config) DiscoverKey() bool {
	pick := func(dst *string, name string) bool {
		if *dst == "" {
			*dst = os.Getenv(name)
		}
		return *dst != ""
	}

	switch c.Provider {
	case ProviderAnthropic:
		return pick(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return pick(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	case ProviderGemini:
		return pick(&c.Gemini.APIKey, "GEMINI_API_KEY")
	case ProviderOpenRouter:
		return pick(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	case ProviderMock:
		return true
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	missing := func(env string) error {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}

	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return missing("QBANK_ANTHROPIC_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missing("QBANK_OPENAI_API_KEY")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missing("QBANK_GEMINI_API_KEY")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return missing("QBANK_OPENROUTER_API_KEY")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
