package domain

import "time"

// WorkflowState defines the lifecycle state of a workflow definition.
type WorkflowState string

const (
	// WorkflowStateDraft is the initial state of a newly created workflow.
	// Draft workflows can be freely edited but are not eligible for execution.
	WorkflowStateDraft WorkflowState = "draft"

	// WorkflowStatePublished marks a workflow as validated and ready for
	// execution. Published workflows should be treated as immutable by
	// convention; structural edits belong on a new draft.
	WorkflowStatePublished WorkflowState = "published"

	// WorkflowStateArchived marks a workflow as retired. Archived workflows
	// are excluded from new executions but remain available for history.
	WorkflowStateArchived WorkflowState = "archived"
)

// IsValid checks if the WorkflowState is one of the known states.
func (ws WorkflowState) IsValid() bool {
	switch ws {
	case WorkflowStateDraft, WorkflowStatePublished, WorkflowStateArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of the WorkflowState.
func (ws WorkflowState) String() string {
	return string(ws)
}

// validWorkflowTransitions enumerates the allowed WorkflowState transitions.
var validWorkflowTransitions = map[WorkflowState][]WorkflowState{
	WorkflowStateDraft:     {WorkflowStatePublished, WorkflowStateArchived},
	WorkflowStatePublished: {WorkflowStateArchived},
	WorkflowStateArchived:  {},
}

// canTransitionWorkflowState reports whether moving from `from` to `to` is allowed.
func canTransitionWorkflowState(from, to WorkflowState) bool {
	for _, allowed := range validWorkflowTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// State returns the workflow's current lifecycle state.
func (w *workflow) State() WorkflowState {
	return w.state
}

// SetState transitions the workflow to the given state, enforcing the
// lifecycle's valid transitions (draft -> published -> archived, or
// draft -> archived directly).
func (w *workflow) SetState(state WorkflowState) error {
	if !state.IsValid() {
		return NewDomainError(ErrCodeInvalidInput, "invalid workflow state: "+string(state), nil)
	}
	if w.state == state {
		return nil
	}
	if !canTransitionWorkflowState(w.state, state) {
		return NewDomainError(
			ErrCodeInvalidState,
			"cannot transition workflow from "+string(w.state)+" to "+string(state),
			nil,
		)
	}
	w.state = state
	w.updatedAt = time.Now()
	return nil
}

// Publish validates the workflow for execution and transitions it to the
// published state.
func (w *workflow) Publish() error {
	if err := w.ValidateForExecution(); err != nil {
		return err
	}
	return w.SetState(WorkflowStatePublished)
}

// Archive transitions the workflow to the archived state, regardless of
// its current state (draft or published workflows can both be retired).
func (w *workflow) Archive() error {
	if w.state == WorkflowStateArchived {
		return nil
	}
	if !canTransitionWorkflowState(w.state, WorkflowStateArchived) {
		return NewDomainError(
			ErrCodeInvalidState,
			"cannot archive workflow from state "+string(w.state),
			nil,
		)
	}
	w.state = WorkflowStateArchived
	w.updatedAt = time.Now()
	return nil
}
