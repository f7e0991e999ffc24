package observability

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader is the HTTP header name for request IDs.
const RequestIDHeader = "X-Request-ID"

// CorrelationIDHeader is accepted inbound when RequestIDHeader is absent.
const CorrelationIDHeader = "X-Correlation-ID"

// TurnIDHeader carries the chat turn ID on outbound calls.
const TurnIDHeader = "X-Coach-Turn-ID"

const maxRequestIDLen = 128

type requestIDKey struct{}

type turnIDKey struct{}

// GenerateRequestID generates a new unique request ID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextWithTurnID adds a chat turn ID to the context.
func ContextWithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnIDKey{}, turnID)
}

// TurnIDFromContext extracts the turn ID from context.
func TurnIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(turnIDKey{}).(string); ok {
		return id
	}
	return ""
}

// EnsureTurnID returns ctx carrying a turn ID, generating one if needed.
func EnsureTurnID(ctx context.Context) (context.Context, string) {
	if id := TurnIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return ContextWithTurnID(ctx, id), id
}

// RequestIDMiddleware tags each request with an ID, reusing a well-formed
// inbound X-Request-ID or X-Correlation-ID, and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := inboundRequestID(r.Header)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), requestID)))
	})
}

func inboundRequestID(h http.Header) string {
	for _, name := range []string{RequestIDHeader, CorrelationIDHeader} {
		if id, ok := sanitizeRequestID(h.Get(name)); ok {
			return id
		}
	}
	return GenerateRequestID()
}

// PropagateIDs copies the request and turn IDs in ctx onto an outbound
// request so model and planner logs can be joined with ours.
func PropagateIDs(ctx context.Context, h http.Header) {
	if id := RequestIDFromContext(ctx); id != "" {
		h.Set(RequestIDHeader, id)
	}
	if id := TurnIDFromContext(ctx); id != "" {
		h.Set(TurnIDHeader, id)
	}
}

func sanitizeRequestID(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxRequestIDLen {
		return "", false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return "", false
		}
	}
	return value, true
}
