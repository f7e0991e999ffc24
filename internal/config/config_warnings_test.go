package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWarnings_MemoryBackends(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Enabled = true

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0], "storage.backend is memory")
	require.Contains(t, warnings[1], "per replica")
}

func TestWarnings_DurableSetup(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = BackendPostgres
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Backend = BackendRedis
	require.Empty(t, cfg.Warnings())
}
