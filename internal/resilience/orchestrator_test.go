package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_CallGoesThroughBulkheadThenBreaker(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{
		CircuitBreaker:   CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Second},
		BulkheadCapacity: 1,
		Degradation:      DefaultDegradationConfig(),
	})

	failing := errors.New("boom")
	err := o.Call(context.Background(), "http-node", func(context.Context) error { return failing })
	require.ErrorIs(t, err, failing)
	err = o.Call(context.Background(), "http-node", func(context.Context) error { return failing })
	require.ErrorIs(t, err, failing)

	// breaker for this key is now open; further calls reject without running fn
	called := false
	err = o.Call(context.Background(), "http-node", func(context.Context) error {
		called = true
		return nil
	})
	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.False(t, called)

	// a different key has its own independent breaker
	err = o.Call(context.Background(), "db-node", func(context.Context) error { return nil })
	require.NoError(t, err)
}

func TestOrchestrator_ResetClearsPerKeyState(t *testing.T) {
	o := NewOrchestrator(DefaultOrchestratorConfig())
	cb := o.CircuitBreaker("svc")
	for i := 0; i < o.config.CircuitBreaker.FailureThreshold; i++ {
		_ = cb.Execute(context.Background(), "svc", func(context.Context) error { return errors.New("fail") })
	}
	require.Equal(t, StateOpen, cb.State())

	o.Reset()
	assert.Equal(t, StateClosed, cb.State())
}
