package main

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/blueberrycongee/llmcoach/internal/metrics"
	"github.com/blueberrycongee/llmcoach/internal/resilience"
)

const headerUserID = "X-User-ID"

// userIDFromRequest returns the user a request acts for when it is not in
// the body.
func userIDFromRequest(r *http.Request) string {
	return r.Header.Get(headerUserID)
}

// turnLimiter applies the per-user turn limit. A limiter backend failure
// lets the turn through.
type turnLimiter struct {
	limiter resilience.Limiter
	logger  *slog.Logger
}

// allow reports whether the turn for key may proceed. When it may not, the
// 429 response has already been written.
func (t turnLimiter) allow(w http.ResponseWriter, r *http.Request, key string) bool {
	if t.limiter == nil {
		return true
	}
	d, err := t.limiter.Allow(r.Context(), key)
	if err != nil {
		t.logger.Warn("rate limiter unavailable, allowing turn", "error", err)
		return true
	}
	if d.Remaining >= 0 {
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	}
	if d.Allowed {
		return true
	}
	metrics.RateLimited.Inc()
	if d.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
	}
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many messages, slow down", Retryable: true})
	return false
}
