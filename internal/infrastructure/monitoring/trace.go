package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// ExecutionTrace represents a trace of execution events.
// It can be used for debugging and visualization.
type ExecutionTrace struct {
	ExecutionID string
	WorkflowID  string
	Events      []*TraceEvent
	mu          sync.Mutex
}

// TraceEvent represents a single event in the execution trace.
type TraceEvent struct {
	Timestamp time.Time
	EventType string
	NodeID    string
	NodeType  string
	Message   string
	Data      map[string]interface{}
	Error     error
}

// NewExecutionTrace creates a new ExecutionTrace.
func NewExecutionTrace(executionID, workflowID string) *ExecutionTrace {
	return &ExecutionTrace{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Events:      make([]*TraceEvent, 0),
	}
}

// AddEvent adds an event to the trace.
func (t *ExecutionTrace) AddEvent(eventType, nodeID, nodeType, message string, data map[string]interface{}, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	event := &TraceEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		NodeID:    nodeID,
		NodeType:  nodeType,
		Message:   message,
		Data:      data,
		Error:     err,
	}
	t.Events = append(t.Events, event)
}

// GetEvents returns all events in the trace.
func (t *ExecutionTrace) GetEvents() []*TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	events := make([]*TraceEvent, len(t.Events))
	copy(events, t.Events)
	return events
}

// GetDuration returns the elapsed time between the first and last recorded
// event. It returns 0 for an empty or single-event trace.
func (t *ExecutionTrace) GetDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.Events) < 2 {
		return 0
	}
	first := t.Events[0].Timestamp
	last := t.Events[len(t.Events)-1].Timestamp
	return last.Sub(first)
}

// GetEventsByType returns all events matching the given event type.
func (t *ExecutionTrace) GetEventsByType(eventType string) []*TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matched []*TraceEvent
	for _, e := range t.Events {
		if e.EventType == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// GetEventsByNodeID returns all events recorded for the given node.
func (t *ExecutionTrace) GetEventsByNodeID(nodeID string) []*TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matched []*TraceEvent
	for _, e := range t.Events {
		if e.NodeID == nodeID {
			matched = append(matched, e)
		}
	}
	return matched
}

// GetErrorEvents returns all events that carry a non-nil error.
func (t *ExecutionTrace) GetErrorEvents() []*TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matched []*TraceEvent
	for _, e := range t.Events {
		if e.Error != nil {
			matched = append(matched, e)
		}
	}
	return matched
}

// HasErrors reports whether any recorded event carries an error.
func (t *ExecutionTrace) HasErrors() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.Events {
		if e.Error != nil {
			return true
		}
	}
	return false
}

// TraceSummary aggregates counts and timing information for an ExecutionTrace.
type TraceSummary struct {
	ExecutionID string
	WorkflowID  string
	TotalEvents int
	ErrorCount  int
	NodeIDs     []string
	EventTypes  map[string]int
	Duration    time.Duration
}

// GetSummary computes a TraceSummary over the trace's recorded events.
func (t *ExecutionTrace) GetSummary() *TraceSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := &TraceSummary{
		ExecutionID: t.ExecutionID,
		WorkflowID:  t.WorkflowID,
		TotalEvents: len(t.Events),
		EventTypes:  make(map[string]int),
	}

	seenNodes := make(map[string]struct{})
	for _, e := range t.Events {
		summary.EventTypes[e.EventType]++
		if e.Error != nil {
			summary.ErrorCount++
		}
		if e.NodeID != "" {
			if _, ok := seenNodes[e.NodeID]; !ok {
				seenNodes[e.NodeID] = struct{}{}
				summary.NodeIDs = append(summary.NodeIDs, e.NodeID)
			}
		}
	}

	if len(t.Events) >= 2 {
		summary.Duration = t.Events[len(t.Events)-1].Timestamp.Sub(t.Events[0].Timestamp)
	}

	return summary
}

// String returns a string representation of the trace.
func (t *ExecutionTrace) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := fmt.Sprintf("Execution Trace [%s]\n", t.ExecutionID)
	result += fmt.Sprintf("Workflow: %s\n", t.WorkflowID)
	result += fmt.Sprintf("Events: %d\n\n", len(t.Events))

	for i, event := range t.Events {
		result += fmt.Sprintf("%d. [%s] %s", i+1, event.Timestamp.Format("15:04:05.000"), event.EventType)
		if event.NodeID != "" {
			result += fmt.Sprintf(" node=%s", event.NodeID)
		}
		if event.NodeType != "" {
			result += fmt.Sprintf(" type=%s", event.NodeType)
		}
		if event.Message != "" {
			result += fmt.Sprintf(" - %s", event.Message)
		}
		if event.Error != nil {
			result += fmt.Sprintf(" [ERROR: %v]", event.Error)
		}
		result += "\n"
	}

	return result
}
