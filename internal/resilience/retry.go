package resilience

import (
	"context"
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
)

// Retry runs fn under a domain.RetryPolicy, sleeping Delay(policy, attempt)
// between attempts and honouring ctx cancellation at every sleep. It is
// shared by per-action retries (§4.2 node executors) and by orchestrator-
// wrapped external calls, so both follow the same three-way backoff math.
func Retry(ctx context.Context, policy domain.RetryPolicy, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !policy.Enabled || attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay(policy, attempt)):
		}
	}
	return lastErr
}
