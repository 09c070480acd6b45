package infra

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker guarding calls to AFIP. WSAA and WSFE go down for
// maintenance windows regularly; once the breaker trips, the revalidation
// cron and metadata sync fast-fail instead of piling up blocked workers.
//
// Closed → Open after FailureThreshold consecutive failures; Open → HalfOpen
// once Cooldown elapses; HalfOpen → Closed after SuccessThreshold consecutive
// probe successes, or back to Open on the first probe failure.

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed   CBState = iota // normal — requests flow
	CBOpen                    // tripped — fast-fail all requests
	CBHalfOpen                // probing — requests allowed, watched closely
)

// String returns a human-readable state name (for health endpoints / logs).
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Do is called while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements the pattern with thread-safe state transitions.
type CircuitBreaker struct {
	failureThreshold int
	successThreshold int
	cooldown         time.Duration

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker creates a breaker in Closed state. Zero or negative
// parameters fall back to 5 failures / 2 successes / 60s cooldown.
func NewCircuitBreaker(failureThreshold, successThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		state:            CBClosed,
	}
}

// State returns the current state, promoting Open to HalfOpen once the
// cooldown has elapsed. Safe for concurrent use.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeProbe()
	return cb.state
}

// Do runs fn through the breaker, returning ErrCircuitOpen without invoking
// fn while the breaker is open.
func (cb *CircuitBreaker) Do(fn func() error) error {
	cb.mu.Lock()
	cb.maybeProbe()
	if cb.state == CBOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.record(err == nil)
	return err
}

// maybeProbe transitions Open → HalfOpen after the cooldown. Caller holds mu.
func (cb *CircuitBreaker) maybeProbe() {
	if cb.state == CBOpen && time.Since(cb.openedAt) >= cb.cooldown {
		cb.state = CBHalfOpen
		cb.successes = 0
	}
}

// record applies one call outcome to the state machine. Caller holds mu.
func (cb *CircuitBreaker) record(ok bool) {
	switch {
	case ok && cb.state == CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = CBClosed
			cb.failures = 0
			cb.successes = 0
		}
	case ok:
		cb.failures = 0
	case cb.state == CBHalfOpen:
		// Probe failed — back to open for another cooldown.
		cb.state = CBOpen
		cb.openedAt = time.Now()
		cb.failures = 0
	default:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = CBOpen
			cb.openedAt = time.Now()
			cb.successes = 0
		}
	}
}
