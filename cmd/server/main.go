// Package main is the entry point for the coach server.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blueberrycongee/llmcoach"
	"github.com/blueberrycongee/llmcoach/internal/config"
	"github.com/blueberrycongee/llmcoach/internal/observability"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
)

const poolMetricsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	envFiles := flag.String("env-file", ".env", "comma-separated env files loaded before the config")
	flag.Parse()

	if err := run(*configPath, strings.Split(*envFiles, ",")); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, envFiles []string) error {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return err
	}

	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfgManager, err := config.NewManager(configPath, bootstrap)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer func() { _ = cfgManager.Close() }()
	cfg := cfgManager.Get()

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:      observability.ParseLevel(cfg.Logging.Level),
		JSONFormat: cfg.Logging.Format != "text",
	}, observability.NewRedactor()).Slog()
	slog.SetDefault(logger)
	logger.Info("starting coach server", "version", llmcoach.Version, "config", configPath)
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "warning", w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		Protocol:       cfg.Tracing.Protocol,
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: llmcoach.Version,
		SampleRate:     cfg.Tracing.SampleRate,
		Insecure:       cfg.Tracing.Insecure,
		Headers:        cfg.Tracing.Headers,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	secrets, err := buildSecrets(ctx, cfg.Secrets, logger)
	if err != nil {
		return err
	}
	defer func() { _ = secrets.Close() }()
	runtimeCfg, err := resolveCredentials(ctx, cfg, secrets)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, runtimeCfg, logger, tp.Tracer())
	if err != nil {
		return err
	}
	defer a.Close()

	reloader := newRulesReloader(logger, a.coach, func(c *config.Config) (*insight.Extractor, error) {
		return c.Extractor(insight.WithLogger(logger))
	})
	cfgManager.OnChange(reloader.Reload)
	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	a.prober.Start(ctx)
	if stop := startPoolMetrics(ctx, a.dbStats, a.redisPool, logger, poolMetricsInterval); stop != nil {
		defer stop()
	}

	deps := routeDeps{coach: a.coach, limiter: a.limiter, health: a.prober}
	if a.mcp != nil {
		deps.mcp = a.mcp.Handler()
	}
	handler, err := buildRouter(runtimeCfg, deps, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
