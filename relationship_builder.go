package mbflow

import "github.com/smilemakc/mbflow/internal/domain"

// RelationshipBuilder provides a fluent interface for building edges between
// workflow nodes. It simplifies edge creation by providing type-safe methods
// for each edge type.
//
// Example usage:
//
//	edges := NewRelationshipBuilder().
//	    Direct(startNode, processNode).
//	    Fork(processNode, checkNode).
//	    Fork(processNode, validateNode).
//	    Join(checkNode, mergeNode).
//	    Join(validateNode, mergeNode).
//	    Conditional(mergeNode, endNode, "status == 'success'").
//	    Build()
type RelationshipBuilder struct {
	edges []Edge
}

// NewRelationshipBuilder creates a new RelationshipBuilder.
func NewRelationshipBuilder() *RelationshipBuilder {
	return &RelationshipBuilder{edges: make([]Edge, 0)}
}

// Direct adds a direct edge from one node to another.
// Direct edges are the default sequential flow between nodes.
func (rb *RelationshipBuilder) Direct(from, to Node) *RelationshipBuilder {
	rb.edges = append(rb.edges, domain.NewEdge(from.ID(), to.ID(), EdgeTypeDirect, map[string]any{}))
	return rb
}

// Fork adds a fork edge from one node to another.
// Fork edges split execution into parallel branches that the engine may
// run concurrently.
func (rb *RelationshipBuilder) Fork(from, to Node) *RelationshipBuilder {
	rb.edges = append(rb.edges, domain.NewEdge(from.ID(), to.ID(), EdgeTypeFork, map[string]any{}))
	return rb
}

// Join adds a join edge from one node to another.
// Join edges synchronize parallel execution branches: the target node
// waits according to its join strategy before executing.
func (rb *RelationshipBuilder) Join(from, to Node) *RelationshipBuilder {
	rb.edges = append(rb.edges, domain.NewEdge(from.ID(), to.ID(), EdgeTypeJoin, map[string]any{}))
	return rb
}

// Conditional adds a conditional edge from one node to another with a
// condition expression. The edge is followed only if the condition
// evaluates to true against the execution's variables.
//
// Example conditions:
//   - "status == 'approved'"
//   - "amount > 1000"
//   - "inquiry_type == 'billing'"
func (rb *RelationshipBuilder) Conditional(from, to Node, condition string) *RelationshipBuilder {
	config := map[string]any{"condition": condition}
	rb.edges = append(rb.edges, domain.NewEdge(from.ID(), to.ID(), EdgeTypeConditional, config))
	return rb
}

// Build returns the constructed slice of edges.
func (rb *RelationshipBuilder) Build() []Edge {
	return rb.edges
}
