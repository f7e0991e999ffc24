package secret

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// cached memoizes the lookups of one provider.
type cached struct {
	Provider
	values *cache.Cache
}

// Cached wraps p so each path is fetched at most once per ttl. Failed
// lookups are not remembered. A non-positive ttl returns p unchanged.
func Cached(p Provider, ttl time.Duration) Provider {
	if ttl <= 0 {
		return p
	}
	return &cached{Provider: p, values: cache.New(ttl, 2*ttl)}
}

func (c *cached) Get(ctx context.Context, path string) (string, error) {
	if v, ok := c.values.Get(path); ok {
		return v.(string), nil
	}
	v, err := c.Provider.Get(ctx, path)
	if err != nil {
		return "", err
	}
	c.values.SetDefault(path, v)
	return v, nil
}

func (c *cached) Close() error {
	c.values.Flush()
	return c.Provider.Close()
}
