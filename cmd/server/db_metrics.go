package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/blueberrycongee/llmcoach/internal/metrics"
)

const defaultPoolMetricsInterval = 30 * time.Second

type dbStatsProvider interface {
	DBStats() sql.DBStats
}

type redisPoolProvider interface {
	PoolStats() (total, idle, stale uint32)
}

// poolGauges collects the publish step of every configured store.
func poolGauges(db dbStatsProvider, rdb redisPoolProvider) []func() {
	var gauges []func()
	if db != nil {
		gauges = append(gauges, func() { metrics.UpdateDBPoolStats(db.DBStats()) })
	}
	if rdb != nil {
		gauges = append(gauges, func() { metrics.UpdateRedisPoolStats(rdb.PoolStats()) })
	}
	return gauges
}

// startPoolMetrics publishes store pool gauges once, then every interval
// until ctx is done or stop is called. Nil means no store has a pool.
func startPoolMetrics(ctx context.Context, db dbStatsProvider, rdb redisPoolProvider, logger *slog.Logger, interval time.Duration) (stop func()) {
	gauges := poolGauges(db, rdb)
	if len(gauges) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultPoolMetricsInterval
	}
	publish := func() {
		for _, g := range gauges {
			g()
		}
	}
	publish()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				publish()
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Debug("pool metrics publisher started", "pools", len(gauges), "interval", interval.String())
	return cancel
}
