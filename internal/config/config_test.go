package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blueberrycongee/llmcoach/pkg/insight"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Coach.TurnTimeout != 60*time.Second {
		t.Errorf("default turn timeout = %v, want 60s", cfg.Coach.TurnTimeout)
	}
	if cfg.Coach.MemoryLimit != 10 || cfg.Coach.ProgressLimit != 7 {
		t.Errorf("default limits = %d/%d, want 10/7", cfg.Coach.MemoryLimit, cfg.Coach.ProgressLimit)
	}
	if cfg.Storage.Retention.MaxRecords != 500 {
		t.Errorf("default retention = %d, want 500", cfg.Storage.Retention.MaxRecords)
	}
	if cfg.Insights.Confidence != types.ConfidenceHigh {
		t.Errorf("default confidence = %s, want high", cfg.Insights.Confidence)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Model.APIKey = "sk-test"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "local model without key", mutate: func(c *Config) {
			c.Model.APIKey = ""
			c.Model.BaseURL = "http://localhost:11434/v1"
		}},
		{name: "invalid port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "port"},
		{name: "invalid port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "port"},
		{name: "unsupported model type", mutate: func(c *Config) { c.Model.Type = "anthropic" }, wantErr: "model.type"},
		{name: "missing api key", mutate: func(c *Config) { c.Model.APIKey = "" }, wantErr: "api_key"},
		{name: "non-positive turn timeout", mutate: func(c *Config) { c.Coach.TurnTimeout = 0 }, wantErr: "turn_timeout"},
		{name: "negative memory limit", mutate: func(c *Config) { c.Coach.MemoryLimit = -1 }, wantErr: "memory_limit"},
		{name: "bad confidence", mutate: func(c *Config) { c.Insights.Confidence = "certain" }, wantErr: "confidence"},
		{name: "bad insight pattern", mutate: func(c *Config) {
			c.Insights.Rules = []insight.RuleSpec{{Category: "broken", Pattern: "(unclosed"}}
		}, wantErr: "insights"},
		{name: "rule without category", mutate: func(c *Config) {
			c.Insights.Rules = []insight.RuleSpec{{Pattern: "sleep"}}
		}, wantErr: "insights"},
		{name: "unknown storage backend", mutate: func(c *Config) { c.Storage.Backend = "mongo" }, wantErr: "storage.backend"},
		{name: "redis memory log", mutate: func(c *Config) { c.Storage.MemoryBackend = BackendRedis }},
		{name: "postgres memory log on memory backend", mutate: func(c *Config) { c.Storage.MemoryBackend = BackendPostgres }, wantErr: "memory_backend"},
		{name: "negative retention", mutate: func(c *Config) { c.Storage.Retention.MaxAge = -time.Hour }, wantErr: "retention"},
		{name: "rate limit without rate", mutate: func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RequestsPerMinute = 0
		}, wantErr: "requests_per_minute"},
		{name: "rate limit unknown backend", mutate: func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.Backend = "memcached"
		}, wantErr: "rate_limit.backend"},
		{name: "sample rate above one", mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 }, wantErr: "sample_rate"},
		{name: "unknown tracing protocol", mutate: func(c *Config) { c.Tracing.Protocol = "udp" }, wantErr: "tracing.protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid yaml", func(t *testing.T) {
		path := createTempFile(t, `
server:
  port: 9090
  read_timeout: 10s
model:
  api_key: test-key
  name: gpt-4o-mini
coach:
  turn_timeout: 45s
storage:
  backend: postgres
  memory_backend: redis
  retention:
    max_records: 200
    max_age: 720h
  postgres:
    host: db
    user: coach
  redis:
    addr: cache:6379
planner:
  base_url: https://planner.example.com
  timeout: 20s
`)

		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("port = %d, want 9090", cfg.Server.Port)
		}
		if cfg.Server.ReadTimeout != 10*time.Second {
			t.Errorf("read_timeout = %v, want 10s", cfg.Server.ReadTimeout)
		}
		if cfg.Server.WriteTimeout != 120*time.Second {
			t.Errorf("write_timeout = %v, defaults should survive partial files", cfg.Server.WriteTimeout)
		}
		if cfg.Model.Name != "gpt-4o-mini" {
			t.Errorf("model name = %s, want gpt-4o-mini", cfg.Model.Name)
		}
		if cfg.Coach.TurnTimeout != 45*time.Second {
			t.Errorf("turn_timeout = %v, want 45s", cfg.Coach.TurnTimeout)
		}
		if cfg.Storage.Retention.MaxRecords != 200 || cfg.Storage.Retention.MaxAge != 720*time.Hour {
			t.Errorf("retention = %+v", cfg.Storage.Retention)
		}
		if cfg.Storage.Postgres.Host != "db" || cfg.Storage.Postgres.Port != 5432 {
			t.Errorf("postgres = %+v", cfg.Storage.Postgres)
		}
		if cfg.Storage.Redis.Addr != "cache:6379" || cfg.Storage.Redis.Namespace != "llmcoach" {
			t.Errorf("redis = %+v", cfg.Storage.Redis)
		}
		if cfg.Planner.BaseURL != "https://planner.example.com" || cfg.Planner.Timeout != 20*time.Second {
			t.Errorf("planner = %+v", cfg.Planner.WorkerConfig)
		}
	})

	t.Run("environment variable expansion", func(t *testing.T) {
		t.Setenv("TEST_COACH_API_KEY", "secret-key-123")
		path := createTempFile(t, `
model:
  api_key: ${TEST_COACH_API_KEY}
`)
		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v", err)
		}
		if cfg.Model.APIKey != "secret-key-123" {
			t.Errorf("api_key = %s, want secret-key-123", cfg.Model.APIKey)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := createTempFile(t, "server: [unclosed")
		if _, err := LoadFromFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected read error")
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		path := createTempFile(t, "server:\n  port: 8080\n")
		if _, err := LoadFromFile(path); err == nil {
			t.Error("expected validation error for missing api key")
		}
	})
}

func TestLoadFromFile_RulesFileRelative(t *testing.T) {
	dir := t.TempDir()
	rules := `
- category: hydration
  pattern: '(drink|drank|drinking).*?(water|glasses|liters)'
`
	if err := os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("model:\n  api_key: k\ninsights:\n  rules_file: rules.yaml\n  confidence: medium\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	ex, err := cfg.Extractor()
	if err != nil {
		t.Fatalf("Extractor() error = %v", err)
	}
	got := ex.Extract("I drank 8 glasses today")
	if len(got) != 1 || got[0].Type != "hydration" {
		t.Fatalf("Extract() = %+v, want one hydration insight", got)
	}
	if got[0].Metadata.Confidence != types.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", got[0].Metadata.Confidence)
	}
}

func TestInsightRules_DefaultTable(t *testing.T) {
	rules, err := validConfig().InsightRules()
	if err != nil {
		t.Fatalf("InsightRules() error = %v", err)
	}
	if len(rules) != len(insight.DefaultRuleSpecs()) {
		t.Errorf("rules = %d, want the built-in table", len(rules))
	}
}

func TestPersona(t *testing.T) {
	cfg := validConfig()
	cfg.Coach.Persona = "inline persona"
	if p, err := cfg.Persona(); err != nil || p != "inline persona" {
		t.Fatalf("Persona() = %q, %v", p, err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "persona.md"), []byte("file persona"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.dir = dir
	cfg.Coach.PersonaFile = "persona.md"
	if p, err := cfg.Persona(); err != nil || p != "file persona" {
		t.Fatalf("Persona() = %q, %v", p, err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("LLMCOACH_TEST_FROM_DOTENV=hello\nLLMCOACH_TEST_PRESET=fromfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LLMCOACH_TEST_PRESET", "fromenv")
	t.Setenv("LLMCOACH_TEST_FROM_DOTENV", "")
	os.Unsetenv("LLMCOACH_TEST_FROM_DOTENV")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if got := os.Getenv("LLMCOACH_TEST_FROM_DOTENV"); got != "hello" {
		t.Errorf("LLMCOACH_TEST_FROM_DOTENV = %q, want hello", got)
	}
	if got := os.Getenv("LLMCOACH_TEST_PRESET"); got != "fromenv" {
		t.Errorf("LLMCOACH_TEST_PRESET = %q, existing values must win", got)
	}
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestParse_Secrets(t *testing.T) {
	cfg, err := Parse([]byte(`
model:
  api_key: vault://secret/data/coach#openai_api_key
secrets:
  cache_ttl: 1m
  vault:
    address: https://vault.internal:8200
    auth_method: approle
    role_id: coach
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Secrets.CacheTTL != time.Minute {
		t.Errorf("Secrets.CacheTTL = %v, want 1m", cfg.Secrets.CacheTTL)
	}
	if cfg.Secrets.Vault.Address != "https://vault.internal:8200" || cfg.Secrets.Vault.AuthMethod != "approle" {
		t.Errorf("Secrets.Vault = %+v", cfg.Secrets.Vault)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.Secrets.CacheTTL = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a negative secrets.cache_ttl")
	}
}

func TestLoadFromFile_ShippedConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("shipped config does not load: %v", err)
	}
	if cfg.Model.APIKey != "env://OPENAI_API_KEY" {
		t.Errorf("api key should stay a reference until resolved, got %q", cfg.Model.APIKey)
	}
	if !cfg.RateLimit.Enabled || cfg.Storage.Backend != BackendMemory {
		t.Errorf("unexpected shipped defaults: rate_limit=%v backend=%s", cfg.RateLimit.Enabled, cfg.Storage.Backend)
	}
}
