package main

import (
	"log/slog"
	"sync/atomic"

	"github.com/blueberrycongee/llmcoach/internal/config"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
)

type extractorSetter interface {
	SetExtractor(*insight.Extractor)
}

// rulesReloader rebuilds the insight extractor when the config file changes.
type rulesReloader struct {
	logger     *slog.Logger
	target     extractorSetter
	build      func(*config.Config) (*insight.Extractor, error)
	inProgress atomic.Bool
}

func newRulesReloader(logger *slog.Logger, target extractorSetter, build func(*config.Config) (*insight.Extractor, error)) *rulesReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &rulesReloader{
		logger: logger,
		target: target,
		build:  build,
	}
}

func (r *rulesReloader) Reload(cfg *config.Config) {
	if !r.inProgress.CompareAndSwap(false, true) {
		r.logger.Warn("insight rule reload already in progress")
		return
	}
	defer r.inProgress.Store(false)

	next, err := r.build(cfg)
	if err != nil {
		r.logger.Error("failed to rebuild insight extractor", "error", err)
		return
	}
	if next == nil {
		r.logger.Error("failed to rebuild insight extractor", "error", "nil extractor")
		return
	}

	r.target.SetExtractor(next)

	r.logger.Info("insight rules reloaded",
		"categories", len(next.Categories()),
		"confidence", cfg.Insights.Confidence,
	)
}
