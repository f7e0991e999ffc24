// Package errors defines the error taxonomy of the coaching core. Turn-level
// failures are CoachErrors tagged with a Kind; provider failures are
// ModelErrors and are wrapped into a CoachError of KindModelCallFailure.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a CoachError.
type Kind string

const (
	KindUnknownFunction    Kind = "unknown_function_requested"
	KindMalformedArguments Kind = "malformed_function_arguments"
	KindDispatchFailure    Kind = "dispatch_failure"
	KindModelCallFailure   Kind = "model_call_failure"
	KindExtraction         Kind = "extraction_error"
	KindConfiguration      Kind = "configuration_error"
)

// CoachError is a classified failure raised inside a turn or at startup.
type CoachError struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *CoachError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CoachError) Unwrap() error { return e.Err }

// NewUnknownFunctionError reports a model-requested function absent from the catalog.
func NewUnknownFunctionError(name string) *CoachError {
	return &CoachError{
		Kind:    KindUnknownFunction,
		Message: fmt.Sprintf("function %q is not in the catalog", name),
	}
}

// NewMalformedArgumentsError reports arguments that fail to parse or miss a required field.
func NewMalformedArgumentsError(name string, err error) *CoachError {
	return &CoachError{
		Kind:    KindMalformedArguments,
		Message: fmt.Sprintf("invalid arguments for %q", name),
		Err:     err,
	}
}

// NewDispatchError wraps a failure returned or raised by the dispatcher.
func NewDispatchError(name string, err error) *CoachError {
	return &CoachError{
		Kind:    KindDispatchFailure,
		Message: fmt.Sprintf("dispatch of %q failed", name),
		Err:     err,
	}
}

// NewModelCallError wraps a model call failure. The turn is retryable unless
// the provider classified the failure as permanent.
func NewModelCallError(phase string, err error) *CoachError {
	retryable := true
	var me *ModelError
	if stderrors.As(err, &me) {
		retryable = me.Retryable
	}
	return &CoachError{
		Kind:      KindModelCallFailure,
		Message:   fmt.Sprintf("%s model call failed", phase),
		Retryable: retryable,
		Err:       err,
	}
}

// NewExtractionError reports an insight rule that misbehaved during self-test.
func NewExtractionError(category string, cause any) *CoachError {
	return &CoachError{
		Kind:    KindExtraction,
		Message: fmt.Sprintf("rule %q failed self-test: %v", category, cause),
	}
}

// NewConfigurationError reports an invalid startup configuration.
func NewConfigurationError(message string, err error) *CoachError {
	return &CoachError{Kind: KindConfiguration, Message: message, Err: err}
}

// KindOf returns the Kind of the first CoachError in err's chain, or "".
func KindOf(err error) Kind {
	var ce *CoachError
	if stderrors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsModelCallFailure reports whether err is a model call failure.
func IsModelCallFailure(err error) bool { return KindOf(err) == KindModelCallFailure }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }

// IsExtraction reports whether err is an extraction self-test failure.
func IsExtraction(err error) bool { return KindOf(err) == KindExtraction }

// IsRetryable reports whether the host may retry the whole turn.
func IsRetryable(err error) bool {
	var ce *CoachError
	if stderrors.As(err, &ce) {
		return ce.Retryable
	}
	var me *ModelError
	if stderrors.As(err, &me) {
		return me.Retryable
	}
	return false
}
