package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThresholdAndRecoversViaHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          50 * time.Millisecond,
	})

	failing := errors.New("downstream unavailable")

	// Three consecutive failures trip the breaker to OPEN.
	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), "svc", func(context.Context) error { return failing })
		require.ErrorIs(t, err, failing)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Calls four and five are rejected without invoking fn.
	for i := 0; i < 2; i++ {
		called := false
		err := cb.Execute(context.Background(), "svc", func(context.Context) error {
			called = true
			return nil
		})
		var openErr *CircuitOpenError
		require.ErrorAs(t, err, &openErr)
		assert.False(t, called)
	}

	time.Sleep(60 * time.Millisecond)

	// The next call is let through as the HALF_OPEN probe; success closes the circuit.
	err := cb.Execute(context.Background(), "svc", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsExactlyOneProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	err := cb.Execute(context.Background(), "svc", func(context.Context) error { return errors.New("fail") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)

	release := make(chan struct{})
	probeStarted := make(chan struct{})
	go func() {
		_ = cb.Execute(context.Background(), "svc", func(context.Context) error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted

	var openErr *CircuitOpenError
	rejectErr := cb.Execute(context.Background(), "svc", func(context.Context) error {
		t.Fatal("a second probe must not be admitted while one is in flight")
		return nil
	})
	require.ErrorAs(t, rejectErr, &openErr)

	close(release)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	_ = cb.Execute(context.Background(), "svc", func(context.Context) error { return errors.New("fail") })
	time.Sleep(15 * time.Millisecond)

	err := cb.Execute(context.Background(), "svc", func(context.Context) error { return errors.New("still failing") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBulkhead_RejectsOnceSaturated(t *testing.T) {
	bh := NewBulkhead("svc", 1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = bh.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var fullErr *BulkheadFullError
	err := bh.Execute(context.Background(), func(context.Context) error {
		t.Fatal("bulkhead should have rejected before calling fn")
		return nil
	})
	require.ErrorAs(t, err, &fullErr)

	close(release)
}

func TestHealthRegistry_AggregateIsWorstOfCriticalChecks(t *testing.T) {
	hr := NewHealthRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hr.Register(ctx, "db", time.Hour, true, func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: Healthy}
	})
	hr.Register(ctx, "cache", time.Hour, true, func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: Unhealthy}
	})
	hr.Register(ctx, "optional", time.Hour, false, func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: Unhealthy}
	})

	require.Eventually(t, func() bool {
		return hr.Aggregate() == Unhealthy
	}, time.Second, time.Millisecond)
}

func TestDegradationTracker_Hysteresis(t *testing.T) {
	dt := NewDegradationTracker(DegradationConfig{DegradationThreshold: 2, RecoveryThreshold: 2, MaxLevel: 2})

	assert.Equal(t, ServiceLevel(0), dt.Observe(false))
	assert.Equal(t, ServiceLevel(1), dt.Observe(false))
	assert.Equal(t, ServiceLevel(1), dt.Observe(false))
	assert.Equal(t, ServiceLevel(2), dt.Observe(false))

	// one healthy observation does not recover a tier; two do
	assert.Equal(t, ServiceLevel(2), dt.Observe(true))
	assert.Equal(t, ServiceLevel(1), dt.Observe(true))
}

func TestDelay_BackoffFormulas(t *testing.T) {
	base := domain.RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Enabled: true}

	fixed := base
	fixed.Backoff = domain.BackoffFixed
	assert.Equal(t, 100*time.Millisecond, Delay(fixed, 1))
	assert.Equal(t, 100*time.Millisecond, Delay(fixed, 4))

	linear := base
	linear.Backoff = domain.BackoffLinear
	assert.Equal(t, 100*time.Millisecond, Delay(linear, 1))
	assert.Equal(t, 300*time.Millisecond, Delay(linear, 3))

	exponential := base
	exponential.Backoff = domain.BackoffExponential
	assert.Equal(t, 100*time.Millisecond, Delay(exponential, 1))
	assert.Equal(t, 400*time.Millisecond, Delay(exponential, 3))
	// clamped at MaxDelay
	assert.Equal(t, time.Second, Delay(exponential, 10))
}
