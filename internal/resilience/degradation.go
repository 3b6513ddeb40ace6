package resilience

import "sync"

// ServiceLevel is a degradation tier, with 0 as fully healthy/nominal and
// increasing numbers as progressively degraded.
type ServiceLevel int

// DegradationConfig sets the consecutive-observation hysteresis that
// moves a service between levels.
type DegradationConfig struct {
	DegradationThreshold int // consecutive unhealthy observations to drop one tier
	RecoveryThreshold    int // consecutive healthy observations to restore one tier
	MaxLevel             ServiceLevel
}

func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{DegradationThreshold: 3, RecoveryThreshold: 3, MaxLevel: 3}
}

// DegradationTracker is a per-key hysteresis state machine: repeated
// unhealthy observations drop the service level by one tier at a time;
// repeated healthy observations restore it the same way. Callers read the
// current level to short-circuit non-essential work.
type DegradationTracker struct {
	mu sync.Mutex

	config DegradationConfig
	level  ServiceLevel

	consecutiveUnhealthy int
	consecutiveHealthy   int
}

func NewDegradationTracker(config DegradationConfig) *DegradationTracker {
	return &DegradationTracker{config: config}
}

// Observe records one health observation and returns the resulting level.
func (dt *DegradationTracker) Observe(healthy bool) ServiceLevel {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	if healthy {
		dt.consecutiveHealthy++
		dt.consecutiveUnhealthy = 0
		if dt.consecutiveHealthy >= dt.config.RecoveryThreshold && dt.level > 0 {
			dt.level--
			dt.consecutiveHealthy = 0
		}
	} else {
		dt.consecutiveUnhealthy++
		dt.consecutiveHealthy = 0
		if dt.consecutiveUnhealthy >= dt.config.DegradationThreshold && dt.level < dt.config.MaxLevel {
			dt.level++
			dt.consecutiveUnhealthy = 0
		}
	}
	return dt.level
}

func (dt *DegradationTracker) Level() ServiceLevel {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	return dt.level
}

func (dt *DegradationTracker) Reset() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.level = 0
	dt.consecutiveHealthy = 0
	dt.consecutiveUnhealthy = 0
}
