// Package infra holds the in-process infrastructure shared by the wiki client:
// the memoization store and the circuit breaker guarding the API endpoint.
package infra

import (
	"sync"
	"time"
)

// CircuitState is the breaker position
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // requests flow
	CircuitOpen                         // requests rejected until the cool-down passes
	CircuitHalfOpen                     // a few probe requests allowed
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults
const (
	DefaultFailureThreshold = 5
	DefaultCoolDown         = 30 * time.Second
	DefaultProbeLimit       = 2
)

// CircuitBreaker stops hammering a wiki that keeps failing. After a run of
// consecutive failures it rejects requests for a cool-down period, then lets a
// limited number of probes through to decide whether to close again.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold  int
	coolDown   time.Duration
	probeLimit int
	now        func() time.Time

	state       CircuitState
	failures    int
	lastFailure time.Time
	probes      int
}

// BreakerOption configures a CircuitBreaker
type BreakerOption func(*CircuitBreaker)

// WithFailureThreshold sets how many consecutive failures open the circuit
func WithFailureThreshold(n int) BreakerOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.threshold = n
		}
	}
}

// WithCoolDown sets how long an open circuit rejects requests
func WithCoolDown(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.coolDown = d
	}
}

// WithProbeLimit sets how many requests a half-open circuit admits
func WithProbeLimit(n int) BreakerOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.probeLimit = n
		}
	}
}

// WithBreakerClock replaces the time source, for tests
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		threshold:  DefaultFailureThreshold,
		coolDown:   DefaultCoolDown,
		probeLimit: DefaultProbeLimit,
		now:        time.Now,
		state:      CircuitClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Allow reports whether a request may be sent now
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) <= cb.coolDown {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.probes = 1
		return true
	case CircuitHalfOpen:
		if cb.probes >= cb.probeLimit {
			return false
		}
		cb.probes++
		return true
	}
	return false
}

// RecordSuccess resets the failure run and closes a half-open circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.probes = 0
	}
}

// RecordFailure extends the failure run. A half-open circuit reopens at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.threshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.probes = 0
	}
}

// State returns the current position
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot for logging and health output
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:            cb.state.String(),
		ConsecutiveFails: cb.failures,
		LastFailure:      cb.lastFailure,
		RetryAt:          cb.lastFailure.Add(cb.coolDown),
	}
}

// CircuitBreakerStats is a point-in-time view of the breaker
type CircuitBreakerStats struct {
	State            string    `json:"state"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	LastFailure      time.Time `json:"last_failure,omitempty"`
	RetryAt          time.Time `json:"retry_at,omitempty"`
}

// ErrCircuitOpen is returned instead of sending a request while the circuit is open
type ErrCircuitOpen struct {
	State    string
	RetryAt  time.Time
	Failures int
}

func (e *ErrCircuitOpen) Error() string {
	return "circuit breaker is " + e.State + " after repeated wiki API failures, retry after " + e.RetryAt.Format(time.RFC3339)
}
