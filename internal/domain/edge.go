package domain

import "github.com/google/uuid"

// Edge represents a connection between two nodes in a workflow, owned by
// the Workflow aggregate. It defines the control flow (and, for
// conditional edges, the guard expression) between workflow steps.
type Edge interface {
	ID() uuid.UUID
	FromNodeID() uuid.UUID
	ToNodeID() uuid.UUID
	Type() EdgeType
	Config() map[string]any

	// Priority orders conditional edges leaving the same node: when more
	// than one sibling conditional edge evaluates true, the one with the
	// highest Priority value wins and is the only one traversed. Edges
	// without an explicit "priority" key in Config default to 0.
	Priority() int
}

// edge is the concrete implementation of Edge held inside a workflow aggregate.
type edge struct {
	id         uuid.UUID
	fromNodeID uuid.UUID
	toNodeID   uuid.UUID
	edgeType   EdgeType
	config     map[string]any
}

// RestoreEdge reconstructs an Edge from persistence or from an API request
// carrying an explicit ID.
func RestoreEdge(id, fromNodeID, toNodeID uuid.UUID, edgeType EdgeType, config map[string]any) Edge {
	if config == nil {
		config = make(map[string]any)
	}
	return &edge{id: id, fromNodeID: fromNodeID, toNodeID: toNodeID, edgeType: edgeType, config: config}
}

// NewEdge creates a new Edge with a generated ID.
func NewEdge(fromNodeID, toNodeID uuid.UUID, edgeType EdgeType, config map[string]any) Edge {
	return RestoreEdge(uuid.New(), fromNodeID, toNodeID, edgeType, config)
}

func (e *edge) ID() uuid.UUID          { return e.id }
func (e *edge) FromNodeID() uuid.UUID  { return e.fromNodeID }
func (e *edge) ToNodeID() uuid.UUID    { return e.toNodeID }
func (e *edge) Type() EdgeType         { return e.edgeType }
func (e *edge) Config() map[string]any { return e.config }

func (e *edge) Priority() int {
	switch p := e.config["priority"].(type) {
	case int:
		return p
	case int64:
		return int(p)
	case float64:
		return int(p)
	}
	return 0
}
