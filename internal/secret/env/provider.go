// Package env resolves env:// secret references from the process
// environment, which may have been populated from .env files.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blueberrycongee/llmcoach/internal/secret"
)

// Provider reads environment variables.
type Provider struct {
	lookup func(string) (string, bool)
}

// New creates a provider over os.LookupEnv.
func New() *Provider {
	return &Provider{lookup: os.LookupEnv}
}

// Get returns the trimmed value of the variable named by path. Unset and
// blank variables are ErrNotFound.
func (p *Provider) Get(_ context.Context, path string) (string, error) {
	val, ok := p.lookup(path)
	val = strings.TrimSpace(val)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable %q: %w", path, secret.ErrNotFound)
	}
	return val, nil
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
