// Package healthcheck provides proactive dependency probing for the coach
// host: stores, caches and the meal planner worker.
package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// Config controls the prober.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Check probes one dependency.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function to a named Check.
func CheckFunc(name string, fn func(ctx context.Context) error) Check {
	return funcCheck{name: name, fn: fn}
}

type funcCheck struct {
	name string
	fn   func(ctx context.Context) error
}

func (c funcCheck) Name() string                    { return c.name }
func (c funcCheck) Check(ctx context.Context) error { return c.fn(ctx) }

// Status is the last probe result of one dependency.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Report is the aggregate health served on /health.
type Report struct {
	Healthy      bool              `json:"healthy"`
	Dependencies map[string]Status `json:"dependencies"`
}

// Prober periodically checks dependencies and keeps the latest result.
type Prober struct {
	cfg     Config
	checks  []Check
	logger  *slog.Logger
	started atomic.Bool

	mu     sync.RWMutex
	status map[string]Status
}

// NewProber creates a prober over checks.
func NewProber(cfg Config, logger *slog.Logger, checks ...Check) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		cfg:    cfg,
		checks: checks,
		logger: logger,
		status: make(map[string]Status, len(checks)),
	}
}

// Start probes once synchronously, then keeps probing until ctx is canceled.
func (p *Prober) Start(ctx context.Context) {
	if p == nil || len(p.checks) == 0 {
		return
	}
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.runOnce(ctx)
	go p.run(ctx)
}

func (p *Prober) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runOnce(ctx)
		case <-ctx.Done():
			p.logger.Info("healthcheck prober stopped")
			return
		}
	}
}

func (p *Prober) runOnce(ctx context.Context) {
	for _, c := range p.checks {
		if ctx.Err() != nil {
			return
		}
		err := p.probe(ctx, c)
		st := Status{Healthy: err == nil, CheckedAt: time.Now()}
		if err != nil {
			st.Error = err.Error()
		}

		p.mu.Lock()
		prev, seen := p.status[c.Name()]
		p.status[c.Name()] = st
		p.mu.Unlock()

		switch {
		case err != nil && (!seen || prev.Healthy):
			p.logger.Warn("dependency unhealthy", "dependency", c.Name(), "error", err)
		case err == nil && seen && !prev.Healthy:
			p.logger.Info("dependency recovered", "dependency", c.Name())
		}
	}
}

func (p *Prober) probe(ctx context.Context, c Check) (err error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("healthcheck panicked")
		}
	}()
	return c.Check(probeCtx)
}

// Report returns the latest results. Dependencies not yet probed are
// reported unhealthy.
func (p *Prober) Report() Report {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r := Report{Healthy: true, Dependencies: make(map[string]Status, len(p.checks))}
	for _, c := range p.checks {
		st, ok := p.status[c.Name()]
		if !ok {
			st = Status{Error: "not probed yet"}
		}
		if !st.Healthy {
			r.Healthy = false
		}
		r.Dependencies[c.Name()] = st
	}
	return r
}

// Names lists the probed dependencies in order.
func (p *Prober) Names() []string {
	names := make([]string, 0, len(p.checks))
	for _, c := range p.checks {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// ServeHTTP writes the report; 503 when any dependency is unhealthy.
func (p *Prober) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := p.Report()
	w.Header().Set("Content-Type", "application/json")
	if !report.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}
