// Package secret resolves credential references in the coach configuration.
// A reference has the form scheme://path; anything else is a literal value.
package secret

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a provider has no value for a path.
var ErrNotFound = errors.New("secret not found")

// Provider defines the interface for retrieving secrets from various sources.
type Provider interface {
	// Get retrieves the secret value for the given path.
	// path examples: "OPENAI_API_KEY" (env), "secret/data/coach#openai_api_key" (vault)
	Get(ctx context.Context, path string) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}
