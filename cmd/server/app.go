package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/llmcoach"
	"github.com/blueberrycongee/llmcoach/internal/config"
	"github.com/blueberrycongee/llmcoach/internal/handlers"
	"github.com/blueberrycongee/llmcoach/internal/healthcheck"
	"github.com/blueberrycongee/llmcoach/internal/mcp"
	"github.com/blueberrycongee/llmcoach/internal/metrics"
	"github.com/blueberrycongee/llmcoach/internal/resilience"
	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/internal/store/inmem"
	"github.com/blueberrycongee/llmcoach/internal/store/postgres"
	redisstore "github.com/blueberrycongee/llmcoach/internal/store/redis"
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
	"github.com/blueberrycongee/llmcoach/pkg/provider"
	"github.com/blueberrycongee/llmcoach/providers/openai"
)

// app holds everything the HTTP layer needs.
type app struct {
	coach   *llmcoach.Coach
	table   *dispatch.Table
	limiter resilience.Limiter
	prober  *healthcheck.Prober
	mcp     *mcp.Server

	dbStats   dbStatsProvider
	redisPool redisPoolProvider

	closers []func() error
}

// stores is the storage wiring chosen by config.
type stores struct {
	base     store.Store
	memories store.MemoryStore
	profiles store.ProfileStore
	checks   []healthcheck.Check
	pg       *postgres.Store
	redis    *redisstore.MemoryStore
	closers  []func() error
}

func buildStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{}
	retention := cfg.Storage.Retention

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := postgres.New(cfg.Storage.Postgres, postgres.WithRetention(retention))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			s.close()
			return nil, err
		}
		s.pg = pg
		s.base = pg
		s.checks = append(s.checks, healthcheck.CheckFunc("postgres", pg.Ping))
		logger.Info("postgres store ready", "host", cfg.Storage.Postgres.Host, "database", cfg.Storage.Postgres.Database)
	default:
		s.base = inmem.New(inmem.WithRetention(retention))
	}
	s.memories = s.base

	if cfg.Storage.MemoryBackend == config.BackendRedis {
		rs, err := redisstore.New(cfg.Storage.Redis, redisstore.WithRetention(retention))
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, rs.Close)
		s.redis = rs
		s.memories = rs
		s.checks = append(s.checks, healthcheck.CheckFunc("redis", rs.Ping))
		logger.Info("redis memory log ready", "addr", cfg.Storage.Redis.Addr)
	}

	s.profiles = s.base
	if ttl := cfg.Coach.ProfileCacheTTL; ttl > 0 {
		s.profiles = store.NewCachedProfiles(s.base, ttl)
	}
	return s, nil
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func buildModel(cfg config.ModelConfig) (provider.Model, error) {
	switch cfg.Type {
	case "", "openai":
		return openai.NewFromConfig(provider.Config{
			Name:                cfg.Type,
			Type:                cfg.Type,
			APIKey:              cfg.APIKey,
			BaseURL:             cfg.BaseURL,
			AllowPrivateBaseURL: cfg.AllowPrivateBaseURL,
			Model:               cfg.Name,
			Temperature:         cfg.Temperature,
			MaxTokens:           cfg.MaxTokens,
			Timeout:             cfg.Timeout,
			Headers:             cfg.Headers,
		})
	default:
		return nil, fmt.Errorf("unsupported model type %q", cfg.Type)
	}
}

func buildLimiter(cfg config.RateLimitConfig, storage config.StorageConfig, shared *redisstore.MemoryStore) (resilience.Limiter, func() error, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	if cfg.Backend != config.BackendRedis {
		return resilience.NewLocalLimiter(cfg.RequestsPerMinute, cfg.BurstSize, 10*time.Minute), nil, nil
	}

	prefix := storage.Redis.Namespace + ":ratelimit"
	if shared != nil {
		return resilience.NewRedisLimiter(shared.Client(), prefix, int64(cfg.RequestsPerMinute), time.Minute), nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        storage.Redis.Addr,
		Password:    storage.Redis.Password,
		DB:          storage.Redis.DB,
		DialTimeout: storage.Redis.DialTimeout,
		PoolSize:    storage.Redis.PoolSize,
	})
	return resilience.NewRedisLimiter(client, prefix, int64(cfg.RequestsPerMinute), time.Minute), client.Close, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, tracer trace.Tracer) (*app, error) {
	st, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a := &app{closers: st.closers}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	checks := st.checks
	var planner handlers.MealPlanner
	if cfg.Planner.BaseURL != "" {
		worker, err := handlers.NewWorkerPlanner(cfg.Planner.WorkerConfig, nil)
		if err != nil {
			return fail(err)
		}
		planner = worker
		watchBreaker(worker.Breaker(), logger)
		checks = append(checks, healthcheck.CheckFunc("meal_planner", func(context.Context) error {
			if worker.Breaker().State() == resilience.StateOpen {
				return resilience.ErrCircuitOpen
			}
			return nil
		}))
	}

	cat := catalog.Default()
	h, err := handlers.New(handlers.Deps{
		Profiles: st.profiles,
		Progress: st.base,
		Feedback: st.base,
		Planner:  planner,
	}, handlers.WithLogger(logger))
	if err != nil {
		return fail(err)
	}
	table, err := h.Table(cat)
	if err != nil {
		return fail(err)
	}
	a.table = table

	model, err := buildModel(cfg.Model)
	if err != nil {
		return fail(err)
	}
	persona, err := cfg.Persona()
	if err != nil {
		return fail(err)
	}
	extractor, err := cfg.Extractor(insight.WithLogger(logger))
	if err != nil {
		return fail(err)
	}

	coach, err := llmcoach.New(
		llmcoach.WithModel(model),
		llmcoach.WithCatalog(cat),
		llmcoach.WithDispatcher(table),
		llmcoach.WithExtractor(extractor),
		llmcoach.WithMemoryStore(st.memories),
		llmcoach.WithProgressStore(st.base),
		llmcoach.WithProfileStore(st.profiles),
		llmcoach.WithLimits(cfg.Coach.MemoryLimit, cfg.Coach.ProgressLimit),
		llmcoach.WithPersona(persona),
		llmcoach.WithTurnTimeout(cfg.Coach.TurnTimeout),
		llmcoach.WithLogger(logger),
		llmcoach.WithTracer(tracer),
	)
	if err != nil {
		return fail(err)
	}
	a.coach = coach

	limiter, closeLimiter, err := buildLimiter(cfg.RateLimit, cfg.Storage, st.redis)
	if err != nil {
		return fail(err)
	}
	a.limiter = limiter
	if closeLimiter != nil {
		a.closers = append(a.closers, closeLimiter)
	}

	if cfg.MCP.Enabled {
		a.mcp = mcp.NewServer(cat, table, llmcoach.Version, logger)
	}
	if st.pg != nil {
		a.dbStats = st.pg
	}
	if st.redis != nil {
		a.redisPool = st.redis
	}
	a.prober = healthcheck.NewProber(healthcheck.Config{}, logger, checks...)
	return a, nil
}

// watchBreaker logs and publishes the breaker's transitions.
func watchBreaker(cb *resilience.CircuitBreaker, logger *slog.Logger) {
	metrics.RecordBreakerState(cb.Name(), int(cb.State()))
	cb.OnStateChange(func(name string, from, to resilience.CircuitState) {
		metrics.RecordBreakerState(name, int(to))
		if to == resilience.StateOpen {
			logger.Warn("circuit breaker opened", "breaker", name, "from", from.String())
			return
		}
		logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	})
}

// Close releases stores and clients in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
