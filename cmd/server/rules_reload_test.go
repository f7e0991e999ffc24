package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/internal/config"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
)

type fakeSetter struct {
	current *insight.Extractor
}

func (f *fakeSetter) SetExtractor(e *insight.Extractor) { f.current = e }

func TestRulesReloaderSwapsExtractorOnSuccess(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{}))

	initial := insight.NewDefault()
	next := insight.NewDefault()
	target := &fakeSetter{current: initial}

	reloader := newRulesReloader(logger, target, func(*config.Config) (*insight.Extractor, error) {
		return next, nil
	})

	reloader.Reload(config.DefaultConfig())

	require.Same(t, next, target.current)
}

func TestRulesReloaderKeepsExtractorOnFailure(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{}))

	initial := insight.NewDefault()
	target := &fakeSetter{current: initial}

	reloader := newRulesReloader(logger, target, func(*config.Config) (*insight.Extractor, error) {
		return nil, errTestReload
	})

	reloader.Reload(config.DefaultConfig())

	require.Same(t, initial, target.current)
}

func TestRulesReloaderUsesConfigRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Insights.Rules = []insight.RuleSpec{{Category: "hydration", Pattern: `water`}}
	target := &fakeSetter{}

	reloader := newRulesReloader(nil, target, func(c *config.Config) (*insight.Extractor, error) {
		return c.Extractor()
	})
	reloader.Reload(cfg)

	require.NotNil(t, target.current)
	require.Equal(t, []string{"hydration"}, target.current.Categories())
}

var errTestReload = errors.New("reload failed")
