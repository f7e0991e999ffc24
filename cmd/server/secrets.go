package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blueberrycongee/llmcoach/internal/config"
	"github.com/blueberrycongee/llmcoach/internal/secret"
	"github.com/blueberrycongee/llmcoach/internal/secret/env"
	"github.com/blueberrycongee/llmcoach/internal/secret/vault"
)

// buildSecrets registers env:// always and vault:// when an address is set.
func buildSecrets(ctx context.Context, cfg config.SecretsConfig, logger *slog.Logger) (*secret.Resolver, error) {
	r := secret.NewResolver()
	r.Register("env", env.New())

	if cfg.Vault.Address != "" {
		v, err := vault.New(ctx, cfg.Vault, logger)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		r.Register("vault", secret.Cached(v, cfg.CacheTTL))
		logger.Info("vault secrets enabled", "address", cfg.Vault.Address, "auth_method", cfg.Vault.AuthMethod)
	}
	return r, nil
}

// resolveCredentials returns a copy of cfg with credential references
// replaced by their values. cfg itself keeps the references.
func resolveCredentials(ctx context.Context, cfg *config.Config, r *secret.Resolver) (*config.Config, error) {
	out := *cfg
	err := r.Resolve(ctx, map[string]*string{
		"model.api_key":             &out.Model.APIKey,
		"planner.api_key":           &out.Planner.APIKey,
		"storage.postgres.password": &out.Storage.Postgres.Password,
		"storage.redis.password":    &out.Storage.Redis.Password,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
