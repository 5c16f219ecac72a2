package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/prospect/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Provider    ProviderConfig  `toml:"provider"`
	Pricing     PricingConfig   `toml:"pricing"`
	Monitor     MonitorConfig   `toml:"monitor"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Seed        SeedConfig      `toml:"seed"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ProviderConfig selects and configures the bulk-inference provider.
type ProviderConfig struct {
	// Name selects the provider implementation: "anthropic" (default) or "openai"
	Name string `toml:"name"`
	// APIKey fallback; environment and KV store take precedence (see ResolveAPIKey)
	APIKey string `toml:"api_key"`
	// Model used for all batch requests
	Model string `toml:"model"`
	// MaxTokens per individual request
	MaxTokens int `toml:"max_tokens"`
	// RequestTimeout for provider HTTP calls
	RequestTimeout time.Duration `toml:"request_timeout"`
	// RateLimit is the minimum spacing between provider API calls shared
	// across all monitor loops (e.g. "1s")
	RateLimit string `toml:"rate_limit"`
	// BaseURL for the file-artifact (OpenAI-style) provider
	BaseURL string `toml:"base_url"`
	// CompletionWindows maps processing mode to the provider completion
	// window requested at batch creation. Fixed at submission.
	CompletionWindows map[string]string `toml:"completion_windows"`
}

// CompletionWindow returns the configured completion window for a mode
func (p *ProviderConfig) CompletionWindow(mode models.ProcessingMode) string {
	if w, ok := p.CompletionWindows[string(mode)]; ok && w != "" {
		return w
	}
	if mode == models.ModeImmediate {
		return "1h"
	}
	return "24h"
}

// PricingConfig holds the published per-item rates used by the cost
// estimator. Rates are per submitted entity, at the immediate tier; the
// deferred tier applies DeferredDiscount.
type PricingConfig struct {
	ContactEnrichment float64 `toml:"contact_enrichment"`
	EmailGeneration   float64 `toml:"email_generation"`
	PipelineAnalysis  float64 `toml:"pipeline_analysis"`
	SocialResearch    float64 `toml:"social_research"`
	// DeferredDiscount multiplies the immediate rate for deferred jobs.
	// The flat 0.5 mirrors provider batch pricing but has not been verified
	// per task type against published rates - hence configurable.
	DeferredDiscount float64 `toml:"deferred_discount"`
}

// Rate returns the immediate-tier per-item rate for a job type
func (p *PricingConfig) Rate(jobType models.JobType) float64 {
	switch jobType {
	case models.JobTypeContactEnrichment:
		return p.ContactEnrichment
	case models.JobTypeEmailGeneration:
		return p.EmailGeneration
	case models.JobTypePipelineAnalysis:
		return p.PipelineAnalysis
	case models.JobTypeSocialResearch:
		return p.SocialResearch
	default:
		return 0
	}
}

// MonitorConfig controls the per-job polling loops.
type MonitorConfig struct {
	// InitialDelayImmediate/Deferred delay the first status check so the
	// provider has begun work before polling starts.
	InitialDelayImmediate time.Duration `toml:"initial_delay_immediate"`
	InitialDelayDeferred  time.Duration `toml:"initial_delay_deferred"`
	// PollIntervalImmediate/Deferred set the fixed cadence after the first check.
	PollIntervalImmediate time.Duration `toml:"poll_interval_immediate"`
	PollIntervalDeferred  time.Duration `toml:"poll_interval_deferred"`
	// MaxPolls bounds a stuck job; exceeding it forces the job to failed
	// with a timeout error. Zero disables the bound.
	MaxPolls int `toml:"max_polls"`
}

// InitialDelay returns the first-check delay for a processing mode
func (m *MonitorConfig) InitialDelay(mode models.ProcessingMode) time.Duration {
	if mode == models.ModeDeferred {
		return m.InitialDelayDeferred
	}
	return m.InitialDelayImmediate
}

// PollInterval returns the polling cadence for a processing mode
func (m *MonitorConfig) PollInterval(mode models.ProcessingMode) time.Duration {
	if mode == models.ModeDeferred {
		return m.PollIntervalDeferred
	}
	return m.PollIntervalImmediate
}

// SchedulerConfig controls the cron-driven automatic pipeline analysis.
type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
	// Schedule is a cron expression; default runs nightly at 2am
	Schedule string `toml:"schedule"`
}

// SeedConfig points at the TOML seed-data directory loaded on startup.
type SeedConfig struct {
	Dir string `toml:"dir"`
}

// NewDefaultConfig returns the default configuration
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/prospect",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Provider: ProviderConfig{
			Name:           "anthropic",
			Model:          "claude-haiku-3-5-20241022",
			MaxTokens:      1024,
			RequestTimeout: 60 * time.Second,
			RateLimit:      "1s",
			BaseURL:        "https://api.openai.com/v1",
			CompletionWindows: map[string]string{
				string(models.ModeImmediate): "1h",
				string(models.ModeDeferred):  "24h",
			},
		},
		Pricing: PricingConfig{
			ContactEnrichment: 0.06,
			EmailGeneration:   0.02,
			PipelineAnalysis:  0.04,
			SocialResearch:    0.04,
			DeferredDiscount:  0.5,
		},
		Monitor: MonitorConfig{
			InitialDelayImmediate: 30 * time.Second,
			InitialDelayDeferred:  5 * time.Minute,
			PollIntervalImmediate: 30 * time.Second,
			PollIntervalDeferred:  5 * time.Minute,
			MaxPolls:              2880, // 24h of deferred polling headroom
		},
		Scheduler: SchedulerConfig{
			Enabled:  false, // Disabled by default - user must explicitly opt-in
			Schedule: "0 2 * * *",
		},
		Seed: SeedConfig{
			Dir: "./seed",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies PROSPECT_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PROSPECT_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("PROSPECT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PROSPECT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("PROSPECT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if name := os.Getenv("PROSPECT_PROVIDER"); name != "" {
		config.Provider.Name = name
	}
	if path := os.Getenv("PROSPECT_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
}

// ApplyFlagOverrides applies CLI flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
