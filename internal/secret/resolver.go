package secret

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const schemeSep = "://"

// Resolver routes references to providers by URI scheme.
type Resolver struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{providers: make(map[string]Provider)}
}

// Register registers a provider for a scheme such as "env" or "vault".
func (r *Resolver) Register(scheme string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[scheme] = p
}

// Schemes lists the registered schemes.
func (r *Resolver) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for s := range r.providers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsReference reports whether v names a secret rather than holding one.
func IsReference(v string) bool {
	scheme, _, ok := strings.Cut(v, schemeSep)
	return ok && scheme != "" && !strings.ContainsAny(scheme, "/.:")
}

// Get resolves ref. Literal values are returned unchanged.
func (r *Resolver) Get(ctx context.Context, ref string) (string, error) {
	if !IsReference(ref) {
		return ref, nil
	}
	scheme, path, _ := strings.Cut(ref, schemeSep)

	r.mu.RLock()
	p, ok := r.providers[scheme]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no secret provider registered for scheme %q", scheme)
	}
	return p.Get(ctx, path)
}

// Resolve replaces every reference in fields with its value. Fields are left
// untouched when any of them fails.
func (r *Resolver) Resolve(ctx context.Context, fields map[string]*string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]string, len(fields))
	for _, name := range names {
		ref := *fields[name]
		if !IsReference(ref) {
			continue
		}
		v, err := r.Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		values[name] = v
	}
	for name, v := range values {
		*fields[name] = v
	}
	return nil
}

// Close closes all registered providers.
func (r *Resolver) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for scheme, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", scheme, err))
		}
	}
	return errors.Join(errs...)
}
