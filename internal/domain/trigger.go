package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trigger represents an event source that can initiate a workflow
// execution, owned by the Workflow aggregate. Beyond identity, a trigger
// carries the policy the engine consults before starting an execution:
// whether it is currently active, how long it must wait between
// activations, how many concurrent executions it may have in flight, and
// whether a given activation input actually satisfies it.
type Trigger interface {
	ID() uuid.UUID
	Type() TriggerType
	Config() map[string]any

	// IsActive reports whether the trigger currently accepts activations.
	// Driven by config["active"] (default true).
	IsActive() bool

	// Cooldown is the minimum time that must elapse between two
	// activations of this trigger. Driven by config["cooldown"], either a
	// time.ParseDuration-compatible string or a number of seconds.
	Cooldown() time.Duration

	// MaxConcurrentExecutions caps how many executions started by this
	// trigger may run at once; zero means unbounded. Driven by
	// config["max_concurrent_executions"].
	MaxConcurrentExecutions() int

	// ShouldTrigger evaluates whether input satisfies this trigger's own
	// activation condition, distinct from any node-level conditional edge.
	// Driven by config["should_trigger"] (default true when absent).
	ShouldTrigger(input map[string]any) bool

	// ValidateInput checks input against config["required_fields"], if set.
	ValidateInput(input map[string]any) error
}

// trigger is the concrete implementation of Trigger held inside a workflow aggregate.
type trigger struct {
	id          uuid.UUID
	triggerType TriggerType
	config      map[string]any
}

// RestoreTrigger reconstructs a Trigger from persistence.
func RestoreTrigger(id uuid.UUID, triggerType TriggerType, config map[string]any) Trigger {
	if config == nil {
		config = make(map[string]any)
	}
	return &trigger{id: id, triggerType: triggerType, config: config}
}

// NewTrigger creates a new Trigger with a generated ID.
func NewTrigger(triggerType TriggerType, config map[string]any) Trigger {
	return RestoreTrigger(uuid.New(), triggerType, config)
}

func (t *trigger) ID() uuid.UUID          { return t.id }
func (t *trigger) Type() TriggerType      { return t.triggerType }
func (t *trigger) Config() map[string]any { return t.config }

func (t *trigger) IsActive() bool {
	if v, ok := t.config["active"].(bool); ok {
		return v
	}
	return true
}

func (t *trigger) Cooldown() time.Duration {
	switch v := t.config["cooldown"].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case float64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	}
	return 0
}

func (t *trigger) MaxConcurrentExecutions() int {
	switch v := t.config["max_concurrent_executions"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (t *trigger) ShouldTrigger(input map[string]any) bool {
	if v, ok := t.config["should_trigger"].(bool); ok {
		return v
	}
	return true
}

func (t *trigger) ValidateInput(input map[string]any) error {
	raw, ok := t.config["required_fields"]
	if !ok {
		return nil
	}
	fields, ok := raw.([]string)
	if !ok {
		if anySlice, ok := raw.([]any); ok {
			for _, f := range anySlice {
				if s, ok := f.(string); ok {
					fields = append(fields, s)
				}
			}
		}
	}
	for _, field := range fields {
		if _, present := input[field]; !present {
			return NewDomainError(
				ErrCodeValidationFailed,
				fmt.Sprintf("trigger input missing required field %q", field),
				nil,
			)
		}
	}
	return nil
}
