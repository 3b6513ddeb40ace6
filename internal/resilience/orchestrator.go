package resilience

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// OrchestratorConfig seeds the default configuration new per-key circuit
// breakers and bulkheads are created with.
type OrchestratorConfig struct {
	CircuitBreaker   CircuitBreakerConfig
	BulkheadCapacity int
	Degradation      DegradationConfig
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		CircuitBreaker:   DefaultCircuitBreakerConfig(),
		BulkheadCapacity: 10,
		Degradation:      DefaultDegradationConfig(),
	}
}

// Orchestrator composes the five resilience primitives (circuit breaker,
// bulkhead, retry, health monitoring, graceful degradation) plus recovery
// rules, keyed independently per logical name. Each key's state lives in
// its own lock (via xsync's striped maps), so operations against
// unrelated keys never contend.
type Orchestrator struct {
	config OrchestratorConfig

	breakers   *xsync.MapOf[string, *CircuitBreaker]
	bulkheads  *xsync.MapOf[string, *Bulkhead]
	degraders  *xsync.MapOf[string, *DegradationTracker]
	health     *HealthRegistry
	recoveries *RecoveryRules
}

func NewOrchestrator(config OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		config:     config,
		breakers:   xsync.NewMapOf[string, *CircuitBreaker](),
		bulkheads:  xsync.NewMapOf[string, *Bulkhead](),
		degraders:  xsync.NewMapOf[string, *DegradationTracker](),
		health:     NewHealthRegistry(),
		recoveries: NewRecoveryRules(),
	}
}

// CircuitBreaker returns (creating if absent) the breaker for key.
func (o *Orchestrator) CircuitBreaker(key string) *CircuitBreaker {
	cb, _ := o.breakers.LoadOrCompute(key, func() *CircuitBreaker {
		return NewCircuitBreaker(o.config.CircuitBreaker)
	})
	return cb
}

// Bulkhead returns (creating if absent) the bulkhead for key.
func (o *Orchestrator) Bulkhead(key string) *Bulkhead {
	bh, _ := o.bulkheads.LoadOrCompute(key, func() *Bulkhead {
		return NewBulkhead(key, o.config.BulkheadCapacity)
	})
	return bh
}

// Degradation returns (creating if absent) the degradation tracker for key.
func (o *Orchestrator) Degradation(key string) *DegradationTracker {
	dt, _ := o.degraders.LoadOrCompute(key, func() *DegradationTracker {
		return NewDegradationTracker(o.config.Degradation)
	})
	return dt
}

// Health returns the shared health-check registry.
func (o *Orchestrator) Health() *HealthRegistry { return o.health }

// Recovery returns the shared recovery-rule engine.
func (o *Orchestrator) Recovery() *RecoveryRules { return o.recoveries }

// Call runs fn through both the bulkhead and circuit breaker for key:
// a slot is acquired first (BulkheadFullError if saturated), then the
// circuit breaker gates the call (CircuitOpenError if open).
func (o *Orchestrator) Call(ctx context.Context, key string, fn func(context.Context) error) error {
	bulkhead := o.Bulkhead(key)
	breaker := o.CircuitBreaker(key)

	return bulkhead.Execute(ctx, func(ctx context.Context) error {
		return breaker.Execute(ctx, key, fn)
	})
}

// Reset clears every per-key circuit breaker, degradation tracker, and
// the recovery-rule cooldown/attempt state, as happens on orchestrator
// shutdown.
func (o *Orchestrator) Reset() {
	o.breakers.Range(func(_ string, cb *CircuitBreaker) bool {
		cb.Reset()
		return true
	})
	o.degraders.Range(func(_ string, dt *DegradationTracker) bool {
		dt.Reset()
		return true
	})
	o.recoveries.Reset()
}
