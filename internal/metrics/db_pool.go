package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBConnectionPoolSize tracks the Postgres store's connection pool.
	DBConnectionPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connection_pool_size",
			Help:      "Database connection pool size",
		},
		[]string{"pool_type"}, // "active", "idle", "max", "waited"
	)

	// RedisConnectionPoolSize tracks the Redis memory log's connection pool.
	RedisConnectionPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_connection_pool_size",
			Help:      "Redis connection pool size",
		},
		[]string{"pool_type"}, // "total", "idle", "stale"
	)
)

// UpdateDBPoolStats publishes database pool statistics. "waited" is the
// cumulative number of turns that queued for a store connection.
func UpdateDBPoolStats(stats sql.DBStats) {
	DBConnectionPoolSize.WithLabelValues("active").Set(float64(stats.InUse))
	DBConnectionPoolSize.WithLabelValues("idle").Set(float64(stats.Idle))
	DBConnectionPoolSize.WithLabelValues("max").Set(float64(stats.MaxOpenConnections))
	DBConnectionPoolSize.WithLabelValues("waited").Set(float64(stats.WaitCount))
}

// UpdateRedisPoolStats publishes Redis pool statistics.
func UpdateRedisPoolStats(total, idle, stale uint32) {
	RedisConnectionPoolSize.WithLabelValues("total").Set(float64(total))
	RedisConnectionPoolSize.WithLabelValues("idle").Set(float64(idle))
	RedisConnectionPoolSize.WithLabelValues("stale").Set(float64(stale))
}
