package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryRules_FiresAfterThresholdWithinWindowThenCoolsDown(t *testing.T) {
	rr := NewRecoveryRules()

	outcomes := make(chan RecoveryOutcome, 10)
	rr.OnOutcome(func(o RecoveryOutcome) { outcomes <- o })

	fired := make(chan struct{}, 10)
	rr.Register(RecoveryRule{
		Name:        "restart-worker",
		Kind:        RecoveryRestart,
		Threshold:   3,
		Window:      time.Second,
		Cooldown:    50 * time.Millisecond,
		MaxAttempts: 5,
		Action: func(ctx context.Context) error {
			fired <- struct{}{}
			return nil
		},
	})

	ctx := context.Background()
	rr.Observe(ctx, "restart-worker")
	rr.Observe(ctx, "restart-worker")
	select {
	case <-fired:
		t.Fatal("should not fire before threshold observations")
	case <-time.After(20 * time.Millisecond):
	}

	rr.Observe(ctx, "restart-worker")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expected action to fire after threshold met")
	}

	select {
	case o := <-outcomes:
		assert.Equal(t, "restart-worker", o.Rule)
		assert.Equal(t, RecoveryRestart, o.Kind)
		assert.NoError(t, o.Err)
		assert.Equal(t, 1, o.Attempt)
	case <-time.After(time.Second):
		t.Fatal("expected an outcome callback")
	}

	// Immediately re-observing during cooldown must not refire.
	rr.Observe(ctx, "restart-worker")
	rr.Observe(ctx, "restart-worker")
	rr.Observe(ctx, "restart-worker")
	select {
	case <-fired:
		t.Fatal("should not fire again during cooldown")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRecoveryRules_RetiresAfterMaxAttempts(t *testing.T) {
	rr := NewRecoveryRules()

	attempts := 0
	done := make(chan struct{})
	rr.OnOutcome(func(o RecoveryOutcome) {
		attempts++
		if attempts == 2 {
			close(done)
		}
	})

	rr.Register(RecoveryRule{
		Name:        "scale-out",
		Kind:        RecoveryScale,
		Threshold:   1,
		Window:      time.Second,
		Cooldown:    time.Millisecond,
		MaxAttempts: 2,
		Action:      func(ctx context.Context) error { return nil },
	})

	ctx := context.Background()
	rr.Observe(ctx, "scale-out")
	time.Sleep(5 * time.Millisecond)
	rr.Observe(ctx, "scale-out")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected two fires before retirement")
	}

	time.Sleep(5 * time.Millisecond)
	rr.Observe(ctx, "scale-out")
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, attempts, "rule must retire after MaxAttempts")
}
