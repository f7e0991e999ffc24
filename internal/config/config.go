// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for zero-downtime updates.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/llmcoach/internal/handlers"
	"github.com/blueberrycongee/llmcoach/internal/secret/vault"
	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/internal/store/postgres"
	redisstore "github.com/blueberrycongee/llmcoach/internal/store/redis"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config represents the complete coach configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Coach     CoachConfig     `yaml:"coach"`
	Insights  InsightsConfig  `yaml:"insights"`
	Storage   StorageConfig   `yaml:"storage"`
	Planner   PlannerConfig   `yaml:"planner"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	MCP       MCPConfig       `yaml:"mcp"`
	Secrets   SecretsConfig   `yaml:"secrets"`

	// dir is the directory of the loaded file; relative paths resolve against it.
	dir string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig selects and configures the language model.
type ModelConfig struct {
	Type                string            `yaml:"type"`
	APIKey              string            `yaml:"api_key"`
	BaseURL             string            `yaml:"base_url"`
	AllowPrivateBaseURL bool              `yaml:"allow_private_base_url"`
	Name                string            `yaml:"name"`
	Temperature         float64           `yaml:"temperature"`
	MaxTokens           int               `yaml:"max_tokens"`
	Timeout             time.Duration     `yaml:"timeout"`
	Headers             map[string]string `yaml:"headers"`
}

// CoachConfig tunes a turn.
type CoachConfig struct {
	Persona         string        `yaml:"persona"`
	PersonaFile     string        `yaml:"persona_file"`
	TurnTimeout     time.Duration `yaml:"turn_timeout"`
	MemoryLimit     int           `yaml:"memory_limit"`
	ProgressLimit   int           `yaml:"progress_limit"`
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`
}

// InsightsConfig configures the insight rule table. Inline rules replace the
// built-in table; a rules file replaces both.
type InsightsConfig struct {
	Confidence string             `yaml:"confidence"`
	Rules      []insight.RuleSpec `yaml:"rules"`
	RulesFile  string             `yaml:"rules_file"`
}

// StorageConfig selects the stores.
type StorageConfig struct {
	// Backend stores profiles, progress, feedback and (by default) memories.
	Backend string `yaml:"backend"`
	// MemoryBackend overrides where the memory log lives.
	MemoryBackend string            `yaml:"memory_backend"`
	Retention     store.Retention   `yaml:"retention"`
	Postgres      postgres.Config   `yaml:"postgres"`
	Redis         redisstore.Config `yaml:"redis"`
}

// PlannerConfig configures meal plan generation. Without a base URL the
// in-process macro planner is used.
type PlannerConfig struct {
	handlers.WorkerConfig `yaml:",inline"`
}

// RateLimitConfig limits turns per user.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Backend           string  `yaml:"backend"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	BurstSize         int     `yaml:"burst_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Protocol    string  `yaml:"protocol"`     // grpc or http
	Endpoint    string  `yaml:"endpoint"`     // OTLP endpoint (e.g., "localhost:4317")
	ServiceName string  `yaml:"service_name"` // Service name for traces
	SampleRate  float64 `yaml:"sample_rate"`  // Sampling rate (0.0 to 1.0)
	Insecure    bool    `yaml:"insecure"`     // Use insecure connection (no TLS)

	Headers map[string]string `yaml:"headers"` // Extra OTLP headers, e.g. collector auth
}

// SecretsConfig controls how env:// and vault:// references in credential
// fields are resolved.
type SecretsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Vault    vault.Config  `yaml:"vault"`
}

// MCPConfig exposes the function catalog as MCP tools.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Model: ModelConfig{
			Type:        "openai",
			Name:        "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
		},
		Coach: CoachConfig{
			TurnTimeout:     60 * time.Second,
			MemoryLimit:     store.DefaultMemoryLoadLimit,
			ProgressLimit:   store.DefaultProgressLoadLimit,
			ProfileCacheTTL: 5 * time.Minute,
		},
		Insights: InsightsConfig{
			Confidence: types.ConfidenceHigh,
		},
		Storage: StorageConfig{
			Backend:   BackendMemory,
			Retention: store.DefaultRetention(),
			Postgres:  postgres.DefaultConfig(),
			Redis:     redisstore.DefaultConfig(),
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			Backend:           BackendMemory,
			RequestsPerMinute: 20,
			BurstSize:         5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Protocol:    "grpc",
			Endpoint:    "localhost:4317",
			ServiceName: "llmcoach",
			SampleRate:  1.0,
			Insecure:    true,
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
		Secrets: SecretsConfig{
			CacheTTL: 5 * time.Minute,
		},
	}
}

// LoadEnvFiles loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are never overwritten.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Resolve returns p relative to the config file directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Model.Type {
	case "openai":
	default:
		return fmt.Errorf("model.type %q is not supported", c.Model.Type)
	}
	if c.Model.APIKey == "" && c.Model.BaseURL == "" {
		return fmt.Errorf("model.api_key is required unless model.base_url points at a compatible server")
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout cannot be negative")
	}

	if c.Coach.TurnTimeout <= 0 {
		return fmt.Errorf("coach.turn_timeout must be positive")
	}
	if c.Coach.MemoryLimit < 0 || c.Coach.ProgressLimit < 0 {
		return fmt.Errorf("coach memory_limit and progress_limit cannot be negative")
	}

	switch c.Insights.Confidence {
	case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
	default:
		return fmt.Errorf("insights.confidence %q must be high, medium or low", c.Insights.Confidence)
	}
	if _, err := c.InsightRules(); err != nil {
		return fmt.Errorf("insights: %w", err)
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("storage.backend %q must be memory or postgres", c.Storage.Backend)
	}
	switch c.Storage.MemoryBackend {
	case "", BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("storage.memory_backend %q is not supported", c.Storage.MemoryBackend)
	}
	if c.Storage.MemoryBackend == BackendPostgres && c.Storage.Backend != BackendPostgres {
		return fmt.Errorf("storage.memory_backend postgres requires storage.backend postgres")
	}
	if c.Storage.Retention.MaxRecords < 0 || c.Storage.Retention.MaxAge < 0 {
		return fmt.Errorf("storage.retention values cannot be negative")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate_limit.requests_per_minute must be positive")
		}
		switch c.RateLimit.Backend {
		case BackendMemory, BackendRedis:
		default:
			return fmt.Errorf("rate_limit.backend %q must be memory or redis", c.RateLimit.Backend)
		}
	}

	if c.Secrets.CacheTTL < 0 {
		return fmt.Errorf("secrets.cache_ttl cannot be negative")
	}

	switch c.Tracing.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("tracing.protocol %q must be grpc or http", c.Tracing.Protocol)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}

	return nil
}

// InsightRules compiles the configured rule table, falling back to the
// built-in one.
func (c *Config) InsightRules() ([]insight.Rule, error) {
	if c.Insights.RulesFile != "" {
		data, err := os.ReadFile(c.Resolve(c.Insights.RulesFile))
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		return insight.LoadRules(data)
	}
	if len(c.Insights.Rules) > 0 {
		return insight.CompileRules(c.Insights.Rules)
	}
	return insight.DefaultRules(), nil
}

// Extractor builds an extractor from the configured rules. The rules are
// self-tested before use.
func (c *Config) Extractor(opts ...insight.Option) (*insight.Extractor, error) {
	rules, err := c.InsightRules()
	if err != nil {
		return nil, err
	}
	opts = append([]insight.Option{insight.WithConfidence(c.Insights.Confidence)}, opts...)
	return insight.New(rules, opts...)
}

// Persona returns the configured persona text, reading PersonaFile when set.
func (c *Config) Persona() (string, error) {
	if c.Coach.PersonaFile == "" {
		return c.Coach.Persona, nil
	}
	data, err := os.ReadFile(c.Resolve(c.Coach.PersonaFile))
	if err != nil {
		return "", fmt.Errorf("read persona file: %w", err)
	}
	return string(data), nil
}

// Warnings returns non-fatal configuration issues worth logging at startup.
func (c *Config) Warnings() []string {
	var out []string
	if c.Storage.Backend == BackendMemory {
		out = append(out, "storage.backend is memory; memories and progress are lost on restart")
	}
	if c.RateLimit.Enabled && c.RateLimit.Backend == BackendMemory {
		out = append(out, "rate_limit.backend is memory; limits are per replica")
	}
	if c.Model.AllowPrivateBaseURL {
		out = append(out, "model.allow_private_base_url is set")
	}
	return out
}
