package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"postcouncil/internal/types"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all postcouncil configuration.
type Config struct {
	// SQLite database
	Database DatabaseConfig `yaml:"database"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// LLM backends used for generation
	Providers ProvidersConfig `yaml:"providers"`

	// Council judge model
	Judge JudgeConfig `yaml:"judge"`

	// Activation fan-out
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Council round defaults
	Council CouncilConfig `yaml:"council"`

	// Brand defaults for campaigns that carry none
	Brand BrandConfig `yaml:"brand"`

	// Optional OpenTelemetry tracing
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig configures persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// ProviderConfig configures one LLM backend.
type ProviderConfig struct {
	APIKey            string `yaml:"api_key,omitempty"`
	BaseURL           string `yaml:"base_url,omitempty"`
	Model             string `yaml:"model"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// ProvidersConfig configures every backend plus shared call limits.
type ProvidersConfig struct {
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
	XAI       ProviderConfig `yaml:"xai"`
	Gemini    ProviderConfig `yaml:"gemini"`

	// Timeout bounds a single backend request.
	Timeout         string  `yaml:"timeout"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// For returns the configuration of one backend.
func (p ProvidersConfig) For(b types.Backend) ProviderConfig {
	switch b {
	case types.BackendAnthropic:
		return p.Anthropic
	case types.BackendOpenAI:
		return p.OpenAI
	case types.BackendXAI:
		return p.XAI
	case types.BackendGemini:
		return p.Gemini
	}
	return ProviderConfig{}
}

// JudgeConfig configures the llm_judge selection policy.
type JudgeConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// OrchestratorConfig configures activation fan-out.
type OrchestratorConfig struct {
	MaxParallelUnits       int    `yaml:"max_parallel_units"`
	DefaultPostsPerSubject int    `yaml:"default_posts_per_subject"`
	DefaultModel           string `yaml:"default_model"`
	DefaultBackend         string `yaml:"default_backend"`
	DefaultStyle           string `yaml:"default_style"`
}

// RetryConfig is the per-branch retry policy of a council round.
type RetryConfig struct {
	MaxAttempts      int    `yaml:"max_attempts"`
	RateLimitBackoff string `yaml:"rate_limit_backoff"`
	TimeoutBackoff   string `yaml:"timeout_backoff"`
}

// CouncilConfig configures council rounds.
type CouncilConfig struct {
	Branches        []types.CouncilBranch `yaml:"branches"`
	SelectionMethod string                `yaml:"selection_method"`
	Retry           RetryConfig           `yaml:"retry"`
}

// BrandConfig supplies brand defaults.
type BrandConfig struct {
	Name     string `yaml:"name"`
	Mission  string `yaml:"mission"`
	Platform string `yaml:"platform"`
}

// TelemetryConfig configures OTLP trace export. Tracing is off unless an endpoint is set.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Enabled reports whether traces are exported.
func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/postcouncil.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{
				BaseURL:           "https://api.anthropic.com/v1",
				Model:             "claude-3-sonnet-20240229",
				RequestsPerMinute: 50,
			},
			OpenAI: ProviderConfig{
				BaseURL:           "https://api.openai.com/v1",
				Model:             "gpt-4-turbo-preview",
				RequestsPerMinute: 60,
			},
			XAI: ProviderConfig{
				BaseURL:           "https://api.x.ai/v1",
				Model:             "grok-4",
				RequestsPerMinute: 60,
			},
			Gemini: ProviderConfig{
				Model:             "gemini-3-flash-preview",
				RequestsPerMinute: 60,
			},
			Timeout:         "60s",
			MaxOutputTokens: 1024,
			Temperature:     0.7,
		},

		Judge: JudgeConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   256,
			Temperature: 0.3,
		},

		Orchestrator: OrchestratorConfig{
			MaxParallelUnits:       4,
			DefaultPostsPerSubject: 3,
			DefaultModel:           "claude-3-sonnet-20240229",
			DefaultBackend:         "anthropic",
			DefaultStyle:           "balanced",
		},

		Council: CouncilConfig{
			Branches: []types.CouncilBranch{
				{Provider: types.BackendGemini, Style: "thoughtful"},
				{Provider: types.BackendOpenAI, Style: "professional"},
				{Provider: types.BackendXAI, Style: "witty"},
			},
			SelectionMethod: "llm_judge",
			Retry: RetryConfig{
				MaxAttempts:      3,
				RateLimitBackoff: "2s",
				TimeoutBackoff:   "1s",
			},
		},

		Brand: BrandConfig{
			Name:     "Meroka",
			Mission:  `"Saving independence in medicine" - Meroka builds collective power for independent physician practices.`,
			Platform: "linkedin",
		},

		Telemetry: TelemetryConfig{
			ServiceName: "postcouncil",
			SampleRatio: 1.0,
		},
	}
}

// Load loads configuration from a YAML file, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// envOverrides lists the environment variables that override file settings.
type envOverrides struct {
	AnthropicKey     string `env:"ANTHROPIC_API_KEY"`
	OpenAIKey        string `env:"OPENAI_API_KEY"`
	XAIKey           string `env:"XAI_API_KEY"`
	GrokKey          string `env:"GROK_API_KEY"`
	GeminiKey        string `env:"GEMINI_API_KEY"`
	DatabasePath     string `env:"POSTCOUNCIL_DB"`
	LogLevel         string `env:"POSTCOUNCIL_LOG_LEVEL"`
	LogFormat        string `env:"POSTCOUNCIL_LOG_FORMAT"`
	OTelEndpoint     string `env:"POSTCOUNCIL_OTEL_ENDPOINT"`
	MaxParallelUnits int    `env:"POSTCOUNCIL_MAX_PARALLEL_UNITS"`
	SelectionMethod  string `env:"POSTCOUNCIL_SELECTION_METHOD"`
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setIf(&c.Providers.Anthropic.APIKey, e.AnthropicKey)
	setIf(&c.Providers.OpenAI.APIKey, e.OpenAIKey)
	// GROK_API_KEY is the legacy name; XAI_API_KEY wins when both are set.
	setIf(&c.Providers.XAI.APIKey, e.GrokKey)
	setIf(&c.Providers.XAI.APIKey, e.XAIKey)
	setIf(&c.Providers.Gemini.APIKey, e.GeminiKey)
	setIf(&c.Database.Path, e.DatabasePath)
	setIf(&c.Logging.Level, e.LogLevel)
	setIf(&c.Logging.Format, e.LogFormat)
	setIf(&c.Telemetry.Endpoint, e.OTelEndpoint)
	setIf(&c.Council.SelectionMethod, e.SelectionMethod)
	if e.MaxParallelUnits > 0 {
		c.Orchestrator.MaxParallelUnits = e.MaxParallelUnits
	}
	return nil
}

// =============================================================================
// DURATION GETTERS
// =============================================================================

// GetProviderTimeout returns the per-request backend timeout.
func (c *Config) GetProviderTimeout() time.Duration {
	return parseDuration(c.Providers.Timeout, 60*time.Second)
}

// GetRateLimitBackoff returns the initial backoff after a rate-limited branch attempt.
func (c *Config) GetRateLimitBackoff() time.Duration {
	return parseDuration(c.Council.Retry.RateLimitBackoff, 2*time.Second)
}

// GetTimeoutBackoff returns the initial backoff after a timed-out branch attempt.
func (c *Config) GetTimeoutBackoff() time.Duration {
	return parseDuration(c.Council.Retry.TimeoutBackoff, time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate validates the configuration. API keys are not required here;
// a missing key surfaces as a provider error on the first call to that backend.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path not configured (set database.path or POSTCOUNCIL_DB)")
	}
	if c.Orchestrator.MaxParallelUnits < 1 {
		return fmt.Errorf("orchestrator.max_parallel_units must be at least 1, got %d", c.Orchestrator.MaxParallelUnits)
	}
	if c.Orchestrator.DefaultPostsPerSubject < 1 {
		return fmt.Errorf("orchestrator.default_posts_per_subject must be at least 1, got %d", c.Orchestrator.DefaultPostsPerSubject)
	}
	if _, err := types.ParseBackend(c.Orchestrator.DefaultBackend); err != nil {
		return fmt.Errorf("orchestrator.default_backend: %w", err)
	}
	if _, err := types.ParseBackend(c.Judge.Provider); err != nil {
		return fmt.Errorf("judge.provider: %w", err)
	}
	if c.Judge.MaxTokens < 1 {
		return fmt.Errorf("judge.max_tokens must be positive")
	}
	if c.Providers.MaxOutputTokens < 1 {
		return fmt.Errorf("providers.max_output_tokens must be positive")
	}
	for _, d := range []struct{ name, value string }{
		{"providers.timeout", c.Providers.Timeout},
		{"council.retry.rate_limit_backoff", c.Council.Retry.RateLimitBackoff},
		{"council.retry.timeout_backoff", c.Council.Retry.TimeoutBackoff},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", d.name, d.value)
		}
	}
	if c.Council.Retry.MaxAttempts < 1 {
		return fmt.Errorf("council.retry.max_attempts must be at least 1")
	}
	if len(c.Council.Branches) == 0 {
		return fmt.Errorf("council.branches must name at least one branch")
	}
	defaults := types.WorkflowConfig{
		SelectionMethod: types.SelectionMethod(c.Council.SelectionMethod),
		Council:         c.Council.Branches,
	}
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("council: %w", err)
	}
	return nil
}
