package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and starts the window on
// the first hit. Returns {count, ttl_seconds}.
const fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
if ttl == -1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {current, ttl}
`

// RedisLimiter is a fixed-window limiter shared by every replica.
type RedisLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
	limit  int64
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows limit calls per key in each window.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int64, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(fixedWindowScript),
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	// Braces keep related keys on one cluster slot.
	k := fmt.Sprintf("%s:{%s}:turns", r.prefix, key)
	val, err := r.script.Run(ctx, r.client, []string{k}, int64(r.window/time.Second)).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(val) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result length %d", len(val))
	}

	current, ttl := val[0], val[1]
	remaining := r.limit - current
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{Allowed: current <= r.limit, Remaining: remaining}
	if !d.Allowed && ttl > 0 {
		d.RetryAfter = time.Duration(ttl) * time.Second
	}
	return d, nil
}
