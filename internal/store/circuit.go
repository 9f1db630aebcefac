package store

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the backend while the breaker is open.
var ErrCircuitOpen = errors.New("model backend unavailable: circuit open")

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // calls flow
	StateOpen                         // calls rejected
	StateHalfOpen                     // one trial call allowed
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards calls to the model backend. Only failures that the
// caller classifies as backend faults count toward the threshold.
type CircuitBreaker struct {
	mu sync.Mutex

	state         CircuitState
	failures      int
	openedAt      time.Time
	trialInFlight bool

	failureThreshold int
	recoveryInterval time.Duration
	now              func() time.Time
}

// NewCircuitBreaker creates a breaker. A threshold <= 0 disables it.
func NewCircuitBreaker(failureThreshold int, recoveryInterval time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		recoveryInterval: recoveryInterval,
		now:              time.Now,
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState moves OPEN to HALF_OPEN once the recovery interval elapsed.
// Must be called with mu held.
func (cb *CircuitBreaker) currentState() CircuitState {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.recoveryInterval {
		cb.state = StateHalfOpen
		cb.trialInFlight = false
	}
	return cb.state
}

// Allow reports whether a call may proceed. In HALF_OPEN only one trial call is
// admitted until its outcome is recorded.
func (cb *CircuitBreaker) Allow() bool {
	if cb.failureThreshold <= 0 {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	}
	return false
}

// RecordSuccess closes a half-open circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.trialInFlight = false
}

// RecordFailure counts a backend fault.
func (cb *CircuitBreaker) RecordFailure() {
	if cb.failureThreshold <= 0 {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.failureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.trialInFlight = false
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.trialInFlight = false
}
