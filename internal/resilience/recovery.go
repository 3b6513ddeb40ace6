package resilience

import (
	"context"
	"sync"
	"time"
)

// RecoveryActionKind names what a recovery rule does when it fires.
type RecoveryActionKind string

const (
	RecoveryScale   RecoveryActionKind = "scale"
	RecoveryRestart RecoveryActionKind = "restart"
	RecoveryCustom  RecoveryActionKind = "custom"
)

// RecoveryOutcome is emitted (via OnOutcome, wired to the event bus by
// callers) after a recovery action runs.
type RecoveryOutcome struct {
	Rule      string
	Kind      RecoveryActionKind
	Err       error
	FiredAt   time.Time
	Attempt   int
}

// RecoveryRule maps a trigger condition to an action. A rule fires when
// Observe(ctx, rule.Name) has been called Threshold times within Window of
// each other; firing is gated by Cooldown and retired after MaxAttempts.
type RecoveryRule struct {
	Name        string
	Kind        RecoveryActionKind
	Threshold   int
	Window      time.Duration
	Cooldown    time.Duration
	MaxAttempts int
	Action      func(ctx context.Context) error
}

type ruleState struct {
	observations []time.Time
	lastFired    time.Time
	attempts     int
	retired      bool
}

// RecoveryRules runs a fixed set of RecoveryRule definitions, each with
// independent cooldown/attempt-budget state.
type RecoveryRules struct {
	mu       sync.Mutex
	rules    map[string]RecoveryRule
	state    map[string]*ruleState
	onOutcome func(RecoveryOutcome)
}

func NewRecoveryRules() *RecoveryRules {
	return &RecoveryRules{
		rules: make(map[string]RecoveryRule),
		state: make(map[string]*ruleState),
	}
}

func (rr *RecoveryRules) OnOutcome(fn func(RecoveryOutcome)) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.onOutcome = fn
}

func (rr *RecoveryRules) Register(rule RecoveryRule) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.rules[rule.Name] = rule
	rr.state[rule.Name] = &ruleState{}
}

// Observe records a trigger-condition occurrence for rule and, if the
// threshold is met within the window and the rule isn't cooling down or
// retired, fires its action asynchronously.
func (rr *RecoveryRules) Observe(ctx context.Context, name string) {
	rr.mu.Lock()
	rule, ok := rr.rules[name]
	st := rr.state[name]
	rr.mu.Unlock()
	if !ok {
		return
	}

	now := time.Now()

	rr.mu.Lock()
	if st.retired || now.Sub(st.lastFired) < rule.Cooldown {
		rr.mu.Unlock()
		return
	}
	st.observations = append(st.observations, now)
	cutoff := now.Add(-rule.Window)
	kept := st.observations[:0]
	for _, t := range st.observations {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	st.observations = kept

	if len(st.observations) < rule.Threshold {
		rr.mu.Unlock()
		return
	}

	st.observations = nil
	st.lastFired = now
	st.attempts++
	attempt := st.attempts
	if st.attempts >= rule.MaxAttempts {
		st.retired = true
	}
	rr.mu.Unlock()

	go rr.fire(ctx, rule, attempt)
}

func (rr *RecoveryRules) fire(ctx context.Context, rule RecoveryRule, attempt int) {
	var err error
	if rule.Action != nil {
		err = rule.Action(ctx)
	}

	rr.mu.Lock()
	cb := rr.onOutcome
	rr.mu.Unlock()
	if cb != nil {
		cb(RecoveryOutcome{Rule: rule.Name, Kind: rule.Kind, Err: err, FiredAt: time.Now(), Attempt: attempt})
	}
}

// Reset clears cooldown/attempt state for every rule, as happens on
// orchestrator shutdown.
func (rr *RecoveryRules) Reset() {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	for name := range rr.state {
		rr.state[name] = &ruleState{}
	}
}
