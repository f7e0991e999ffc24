// Package resilience guards the coach's outbound dependencies and limits how
// fast a single user can drive turns.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed allows calls to pass through normally.
	StateClosed CircuitState = iota
	// StateOpen rejects all calls.
	StateOpen
	// StateHalfOpen lets a few probe calls through.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig contains configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold"`
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int `yaml:"success_threshold"`
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration `yaml:"timeout"`
	// HalfOpenMaxRequests caps concurrent probes.
	HalfOpenMaxRequests int `yaml:"half_open_max_requests"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// CircuitBreaker stops calling a dependency that keeps failing.
type CircuitBreaker struct {
	mu              sync.Mutex
	name            string
	state           CircuitState
	failureCount    int
	successCount    int
	halfOpenCount   int
	lastFailureTime time.Time
	config          CircuitBreakerConfig
	now             func() time.Time
	onStateChange   func(name string, from, to CircuitState)
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = def.HalfOpenMaxRequests
	}
	return &CircuitBreaker{
		name:   name,
		state:  StateClosed,
		config: cfg,
		now:    time.Now,
	}
}

// OnStateChange sets a callback for state transitions. The callback runs
// synchronously after the breaker lock is released.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Do runs fn when the circuit allows it and records the outcome. Context
// cancellation by the caller is not counted as a dependency failure.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	switch {
	case err == nil:
		cb.RecordSuccess()
	case errors.Is(err, context.Canceled):
	default:
		cb.RecordFailure()
	}
	return err
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	var notify func()
	defer func() {
		cb.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.config.Timeout {
			notify = cb.transitionTo(StateHalfOpen)
			cb.halfOpenCount = 1
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCount < cb.config.HalfOpenMaxRequests {
			cb.halfOpenCount++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var notify func()
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			notify = cb.transitionTo(StateClosed)
		}
	}
	cb.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	var notify func()
	cb.lastFailureTime = cb.now()
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			notify = cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		notify = cb.transitionTo(StateOpen)
	}
	cb.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Reset closes the circuit and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	notify := cb.transitionTo(StateClosed)
	cb.failureCount = 0
	cb.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// transitionTo must be called with mu held. It returns the state change
// notification to run once the lock is released.
func (cb *CircuitBreaker) transitionTo(next CircuitState) func() {
	if cb.state == next {
		return nil
	}
	prev := cb.state
	cb.state = next
	cb.successCount = 0
	cb.halfOpenCount = 0
	if next == StateClosed {
		cb.failureCount = 0
	}

	fn := cb.onStateChange
	if fn == nil {
		return nil
	}
	name := cb.name
	return func() { fn(name, prev, next) }
}
