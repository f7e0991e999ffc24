package resilience

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed bool
	// Remaining is the number of calls left in the current window, or -1
	// when the limiter does not track it.
	Remaining int64
	// RetryAfter is how long the caller should wait when not allowed.
	RetryAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// LocalLimiter keeps one token bucket per key in process memory. Buckets of
// idle keys are evicted.
type LocalLimiter struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	buckets *gocache.Cache
}

var _ Limiter = (*LocalLimiter)(nil)

// NewLocalLimiter allows perMinute calls per key with the given burst.
// Buckets unused for idle are dropped.
func NewLocalLimiter(perMinute float64, burst int, idle time.Duration) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &LocalLimiter{
		rate:    rate.Limit(perMinute / 60),
		burst:   burst,
		buckets: gocache.New(idle, 2*idle),
	}
}

func (l *LocalLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		b := v.(*rate.Limiter)
		// Touch to extend the idle expiry.
		l.buckets.SetDefault(key, b)
		return b
	}
	b := rate.NewLimiter(l.rate, l.burst)
	l.buckets.SetDefault(key, b)
	return b
}

// Allow implements Limiter.
func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	b := l.bucket(key)
	now := time.Now()
	r := b.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, Remaining: 0}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, Remaining: 0, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: -1}, nil
}
