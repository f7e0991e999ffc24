package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blueberrycongee/llmcoach/internal/metrics"
)

// Status describes the configuration currently in effect.
type Status struct {
	Path        string
	Checksum    string
	LoadedAt    time.Time
	ReloadCount uint64
	LastError   string
}

// Manager handles configuration loading and hot-reload.
// It uses atomic pointer swaps to ensure thread-safe config updates.
type Manager struct {
	config  atomic.Pointer[Config]
	status  atomic.Pointer[Status]
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu       sync.Mutex
	onChange []func(*Config)
}

// NewManager creates a new configuration manager.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		path:   path,
		logger: logger,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the current configuration.
// This is safe to call concurrently from multiple goroutines.
func (m *Manager) Get() *Config {
	return m.config.Load()
}

// Status returns the load status of the current configuration.
func (m *Manager) Status() Status {
	return *m.status.Load()
}

// OnChange registers a callback to be invoked when configuration changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Watch starts watching the configuration file for changes.
// It debounces rapid changes and reloads configuration atomically.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	if err := watcher.Add(m.path); err != nil {
		_ = watcher.Close()
		return err
	}

	go m.watchLoop(ctx)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context) {
	const debounceDelay = 500 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			_ = m.watcher.Close()
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			// Editors that replace the file drop the watch; re-add it.
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				_ = m.watcher.Add(m.path)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					_ = m.Reload()
				})
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("config watcher error", "error", err)
		}
	}
}

// Reload re-reads the file. An invalid file, including insight rules that
// fail their self-test, leaves the current configuration in place.
func (m *Manager) Reload() error {
	if err := m.load(); err != nil {
		metrics.RuleReloads.WithLabelValues("error").Inc()
		m.logger.Error("failed to reload config, keeping current",
			"path", m.path,
			"error", err,
		)
		return err
	}
	metrics.RuleReloads.WithLabelValues("success").Inc()
	m.logger.Info("configuration reloaded successfully", "path", m.path)

	cfg := m.Get()
	m.mu.Lock()
	listeners := slices.Clone(m.onChange)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		m.recordError(err)
		return err
	}
	cfg, err := LoadFromFile(m.path)
	if err != nil {
		m.recordError(err)
		return err
	}

	sum := sha256.Sum256(data)
	var count uint64 = 1
	if prev := m.status.Load(); prev != nil {
		count = prev.ReloadCount + 1
	}
	m.config.Store(cfg)
	m.status.Store(&Status{
		Path:        m.path,
		Checksum:    hex.EncodeToString(sum[:]),
		LoadedAt:    time.Now(),
		ReloadCount: count,
	})
	return nil
}

func (m *Manager) recordError(err error) {
	prev := m.status.Load()
	if prev == nil {
		return
	}
	next := *prev
	next.LastError = err.Error()
	m.status.Store(&next)
}

// Close stops the configuration watcher.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
