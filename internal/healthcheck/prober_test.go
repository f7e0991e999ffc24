package healthcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_RunOnce_RecordsFailure(t *testing.T) {
	prober := NewProber(Config{Timeout: time.Second}, nil,
		CheckFunc("postgres", func(context.Context) error { return nil }),
		CheckFunc("redis", func(context.Context) error { return errors.New("connection refused") }),
	)

	prober.runOnce(context.Background())

	report := prober.Report()
	require.False(t, report.Healthy)
	assert.True(t, report.Dependencies["postgres"].Healthy)
	assert.False(t, report.Dependencies["redis"].Healthy)
	assert.Equal(t, "connection refused", report.Dependencies["redis"].Error)
	assert.Equal(t, []string{"postgres", "redis"}, prober.Names())
}

func TestProber_RunOnce_Recovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	prober := NewProber(Config{}, nil, CheckFunc("planner", func(context.Context) error {
		if failing.Load() {
			return errors.New("circuit open")
		}
		return nil
	}))

	prober.runOnce(context.Background())
	require.False(t, prober.Report().Healthy)

	failing.Store(false)
	prober.runOnce(context.Background())
	require.True(t, prober.Report().Healthy)
}

func TestProber_ProbeTimeout(t *testing.T) {
	prober := NewProber(Config{Timeout: 20 * time.Millisecond}, nil, CheckFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	prober.runOnce(context.Background())
	assert.False(t, prober.Report().Dependencies["slow"].Healthy)
}

func TestProber_PanickingCheck(t *testing.T) {
	prober := NewProber(Config{}, nil, CheckFunc("bad", func(context.Context) error { panic("boom") }))
	prober.runOnce(context.Background())
	assert.Equal(t, "healthcheck panicked", prober.Report().Dependencies["bad"].Error)
}

func TestProber_ServeHTTP(t *testing.T) {
	prober := NewProber(Config{}, nil, CheckFunc("postgres", func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	prober.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "unprobed dependencies are unhealthy")

	prober.runOnce(context.Background())
	rec = httptest.NewRecorder()
	prober.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Healthy)
	assert.Contains(t, report.Dependencies, "postgres")
}

func TestProber_NoChecksIsHealthy(t *testing.T) {
	prober := NewProber(Config{}, nil)
	prober.Start(context.Background())
	assert.True(t, prober.Report().Healthy)
}
