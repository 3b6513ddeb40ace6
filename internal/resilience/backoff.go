package resilience

import (
	"math"
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
)

// Delay computes the backoff delay before retry attempt number `attempt`
// (1-indexed: the delay before the *second* try is Delay(policy, 1)).
// fixed is constant; linear is initial×attempt; exponential is
// initial×2^(attempt-1); all clamped to MaxDelay. No jitter is applied —
// the three curves must be exactly reproducible for callers asserting on
// them.
func Delay(policy domain.RetryPolicy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch policy.Backoff {
	case domain.BackoffFixed:
		d = policy.InitialDelay
	case domain.BackoffLinear:
		d = policy.InitialDelay * time.Duration(attempt)
	case domain.BackoffExponential:
		d = time.Duration(float64(policy.InitialDelay) * math.Pow(2, float64(attempt-1)))
	default:
		d = policy.InitialDelay
	}

	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	return d
}
