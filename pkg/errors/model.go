package errors

import (
	"fmt"
	"net/http"
)

// ModelError is a standardized error returned by a language-model provider
// adapter. Adapters map vendor-specific failures onto it so the coach core
// can decide whether a turn is worth retrying.
type ModelError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s, code=%d)",
		e.Type, e.Message, e.Provider, e.Model, e.StatusCode)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *ModelError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Provider error types.
const (
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeNotFound           = "not_found_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
	TypeContextLength      = "context_length_exceeded"
	TypeMalformedResponse  = "malformed_response"
)

func newModelError(status int, typ string, retryable bool, provider, model, message string) *ModelError {
	return &ModelError{
		StatusCode: status,
		Message:    message,
		Type:       typ,
		Provider:   provider,
		Model:      model,
		Retryable:  retryable,
	}
}

// NewAuthenticationError creates an authentication error (401).
func NewAuthenticationError(provider, model, message string) *ModelError {
	return newModelError(http.StatusUnauthorized, TypeAuthentication, false, provider, model, message)
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, model, message string) *ModelError {
	return newModelError(http.StatusTooManyRequests, TypeRateLimit, true, provider, model, message)
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(provider, model, message string) *ModelError {
	return newModelError(http.StatusBadRequest, TypeInvalidRequest, false, provider, model, message)
}

// NewNotFoundError creates a not found error (404).
func NewNotFoundError(provider, model, message string) *ModelError {
	return newModelError(http.StatusNotFound, TypeNotFound, false, provider, model, message)
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(provider, model, message string) *ModelError {
	return newModelError(http.StatusRequestTimeout, TypeTimeout, true, provider, model, message)
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(provider, model, message string) *ModelError {
	return newModelError(http.StatusServiceUnavailable, TypeServiceUnavailable, true, provider, model, message)
}

// NewInternalError creates an internal server error (500). Provider-side
// failures are transient, so it is retryable.
func NewInternalError(provider, model, message string) *ModelError {
	return newModelError(http.StatusInternalServerError, TypeInternalError, true, provider, model, message)
}

// NewMalformedResponseError reports a provider response that is neither a
// single text reply nor a single function call.
func NewMalformedResponseError(provider, model, message string) *ModelError {
	return newModelError(http.StatusBadGateway, TypeMalformedResponse, true, provider, model, message)
}

// IsRetryableStatus reports whether an upstream HTTP status is worth a retry
// at the host level.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return statusCode >= 500
}
