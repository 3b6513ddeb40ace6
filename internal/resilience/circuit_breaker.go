// Package resilience implements the self-healing orchestrator: circuit
// breakers, bulkheads, retries, health monitoring, graceful degradation,
// and recovery actions, each keyed by a logical name and stored in a
// lock-striped concurrent map so unrelated keys never contend.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState is one of CLOSED, OPEN, HALF_OPEN.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
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

// CircuitBreakerConfig configures a single circuit breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
	}
}

// CircuitBreaker is a per-service CLOSED/OPEN/HALF_OPEN gate. HALF_OPEN
// always admits exactly one probe at a time, regardless of configuration
// — this is a hard invariant, not a tunable, so the breaker's observable
// behaviour matches its documented state machine exactly.
type CircuitBreaker struct {
	mu sync.Mutex

	config CircuitBreakerConfig
	state  CircuitState

	consecutiveFailures  int
	consecutiveSuccesses int
	totalFailures        int
	totalSuccesses       int

	lastStateChange time.Time
	openedAt        time.Time
	probeInFlight   bool
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// CircuitOpenError is the public-boundary error kind emitted when a call
// is rejected because the circuit is open.
type CircuitOpenError struct {
	Key      string
	OpenedAt time.Time
	Timeout  time.Duration
}

func (e *CircuitOpenError) Error() string {
	remaining := e.Timeout - time.Since(e.OpenedAt)
	return fmt.Sprintf("circuit %q is open, retry in %v", e.Key, remaining)
}

// Execute runs fn under circuit-breaker protection, rejecting it with
// *CircuitOpenError without calling fn at all if the circuit disallows it.
func (cb *CircuitBreaker) Execute(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := cb.before(key); err != nil {
		return err
	}
	err := fn(ctx)
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before(key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) < cb.config.Timeout {
			return &CircuitOpenError{Key: key, OpenedAt: cb.openedAt, Timeout: cb.config.Timeout}
		}
		cb.setState(StateHalfOpen)
		cb.probeInFlight = true
		return nil
	case StateHalfOpen:
		if cb.probeInFlight {
			return &CircuitOpenError{Key: key, OpenedAt: cb.openedAt, Timeout: cb.config.Timeout}
		}
		cb.probeInFlight = true
		return nil
	default:
		return errors.New("circuit breaker: unknown state")
	}
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probeInFlight = false
	}

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.consecutiveFailures++
	cb.consecutiveSuccesses = 0
	cb.totalFailures++

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
			cb.openedAt = time.Now()
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
		cb.openedAt = time.Now()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.consecutiveSuccesses++
	cb.consecutiveFailures = 0
	cb.totalSuccesses++

	if cb.state == StateHalfOpen && cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}
	cb.state = newState
	cb.lastStateChange = time.Now()
	if newState == StateClosed {
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses = 0
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() map[string]any {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	stats := map[string]any{
		"state":                 cb.state.String(),
		"consecutive_failures":  cb.consecutiveFailures,
		"consecutive_successes": cb.consecutiveSuccesses,
		"total_failures":        cb.totalFailures,
		"total_successes":       cb.totalSuccesses,
		"last_state_change":     cb.lastStateChange,
	}
	if cb.state == StateOpen {
		stats["opened_at"] = cb.openedAt
	}
	return stats
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.probeInFlight = false
	cb.lastStateChange = time.Now()
}
