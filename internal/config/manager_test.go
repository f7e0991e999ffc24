package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/blueberrycongee/llmcoach/internal/metrics"
)

const baseConfig = `
server:
  port: 8080
model:
  api_key: test-key
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerStatus(t *testing.T) {
	path := writeConfigFile(t, baseConfig)
	mgr, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	status := mgr.Status()
	if status.Path != path {
		t.Fatalf("Status().Path = %q, want %q", status.Path, path)
	}
	if status.Checksum == "" {
		t.Fatal("Status().Checksum is empty")
	}
	if status.LoadedAt.IsZero() {
		t.Fatal("Status().LoadedAt is zero")
	}
	if status.ReloadCount == 0 {
		t.Fatal("Status().ReloadCount should be > 0")
	}
}

func TestManagerReloadUpdatesChecksum(t *testing.T) {
	path := writeConfigFile(t, baseConfig)
	mgr, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var notified atomic.Int32
	mgr.OnChange(func(cfg *Config) {
		if cfg.Server.Port == 9090 {
			notified.Add(1)
		}
	})

	before := mgr.Status()
	successBefore := testutil.ToFloat64(metrics.RuleReloads.WithLabelValues("success"))

	if err := os.WriteFile(path, []byte("server:\n  port: 9090\nmodel:\n  api_key: test-key\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	after := mgr.Status()
	if after.Checksum == before.Checksum {
		t.Fatal("expected checksum to change after reload")
	}
	if after.ReloadCount != before.ReloadCount+1 {
		t.Fatalf("expected reload count %d, got %d", before.ReloadCount+1, after.ReloadCount)
	}
	if mgr.Get().Server.Port != 9090 {
		t.Fatalf("expected server port 9090, got %d", mgr.Get().Server.Port)
	}
	if notified.Load() != 1 {
		t.Fatalf("OnChange listeners notified %d times, want 1", notified.Load())
	}
	if got := testutil.ToFloat64(metrics.RuleReloads.WithLabelValues("success")) - successBefore; got != 1 {
		t.Fatalf("success reloads delta = %v, want 1", got)
	}
}

func TestManagerReloadKeepsConfigOnBadRules(t *testing.T) {
	path := writeConfigFile(t, baseConfig)
	mgr, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	errorsBefore := testutil.ToFloat64(metrics.RuleReloads.WithLabelValues("error"))

	bad := baseConfig + `
insights:
  rules:
    - category: broken
      pattern: "(unclosed"
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := mgr.Reload(); err == nil {
		t.Fatal("Reload() should reject a rule table that fails to compile")
	}

	if len(mgr.Get().Insights.Rules) != 0 {
		t.Fatal("current config must be kept after a failed reload")
	}
	if mgr.Status().LastError == "" {
		t.Fatal("Status().LastError should describe the failure")
	}
	if got := testutil.ToFloat64(metrics.RuleReloads.WithLabelValues("error")) - errorsBefore; got != 1 {
		t.Fatalf("error reloads delta = %v, want 1", got)
	}
}

func TestManagerWatch(t *testing.T) {
	path := writeConfigFile(t, baseConfig)
	mgr, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan int, 4)
	mgr.OnChange(func(cfg *Config) { changed <- cfg.Server.Port })
	if err := mgr.Watch(ctx); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("server:\n  port: 7070\nmodel:\n  api_key: test-key\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	select {
	case port := <-changed:
		if port != 7070 {
			t.Fatalf("reloaded port = %d, want 7070", port)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not picked up")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
