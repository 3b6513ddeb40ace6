package executor

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/smilemakc/mbflow/internal/domain"
)

// WorkflowGraph represents the structure of a workflow with nodes and edges,
// built from a domain.Workflow aggregate. It provides graph traversal and
// analysis used by the planner and engine: dependency lookup, topological
// ordering, wave partitioning for parallel execution, and ancestor checks for
// cross-node data references.
type WorkflowGraph struct {
	workflowID uuid.UUID

	nodes    map[uuid.UUID]domain.Node
	nodeList []domain.Node

	edges        []domain.Edge
	forwardEdges map[uuid.UUID][]domain.Edge // fromNodeID -> outgoing edges
	reverseEdges map[uuid.UUID][]domain.Edge // toNodeID -> incoming edges

	nameIndex map[string]uuid.UUID // node name -> ID, for edge data-source validation
}

// NewWorkflowGraph builds a WorkflowGraph from a workflow's current nodes and
// edges and validates it (cycle-freedom and edge data-source references).
func NewWorkflowGraph(workflow domain.Workflow) (*WorkflowGraph, error) {
	nodes := workflow.GetAllNodes()
	edges := workflow.GetAllEdges()

	graph := &WorkflowGraph{
		workflowID:   workflow.ID(),
		nodes:        make(map[uuid.UUID]domain.Node, len(nodes)),
		nodeList:     make([]domain.Node, 0, len(nodes)),
		edges:        make([]domain.Edge, 0, len(edges)),
		forwardEdges: make(map[uuid.UUID][]domain.Edge),
		reverseEdges: make(map[uuid.UUID][]domain.Edge),
		nameIndex:    make(map[string]uuid.UUID, len(nodes)),
	}

	for _, node := range nodes {
		graph.nodes[node.ID()] = node
		graph.nodeList = append(graph.nodeList, node)
		graph.nameIndex[node.Name()] = node.ID()
	}

	for _, edge := range edges {
		graph.edges = append(graph.edges, edge)
		graph.forwardEdges[edge.FromNodeID()] = append(graph.forwardEdges[edge.FromNodeID()], edge)
		graph.reverseEdges[edge.ToNodeID()] = append(graph.reverseEdges[edge.ToNodeID()], edge)
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}

// Validate checks structural invariants of the graph: no cycles, and every
// edge's cross-node data-source references resolve to a valid ancestor.
func (g *WorkflowGraph) Validate() error {
	if g.HasCycles() {
		return domain.NewDomainError(
			domain.ErrCodeValidationFailed,
			"workflow graph contains a cycle",
			nil,
		)
	}

	for _, edge := range g.edges {
		if err := g.ValidateEdgeDataSources(edge); err != nil {
			return err
		}
	}

	return nil
}

// GetNode returns the node with the given ID.
func (g *WorkflowGraph) GetNode(nodeID uuid.UUID) (domain.Node, error) {
	node, ok := g.nodes[nodeID]
	if !ok {
		return nil, domain.NewDomainError(
			domain.ErrCodeNotFound,
			fmt.Sprintf("node %s not found in graph", nodeID),
			nil,
		)
	}
	return node, nil
}

// GetNodeByName returns the node with the given name.
func (g *WorkflowGraph) GetNodeByName(name string) (domain.Node, error) {
	id, ok := g.nameIndex[name]
	if !ok {
		return nil, domain.NewDomainError(
			domain.ErrCodeNotFound,
			fmt.Sprintf("node %q not found in graph", name),
			nil,
		)
	}
	return g.nodes[id], nil
}

// GetAllNodes returns all nodes in the graph.
func (g *WorkflowGraph) GetAllNodes() []domain.Node {
	return g.nodeList
}

// GetNodeCount returns the number of nodes in the graph.
func (g *WorkflowGraph) GetNodeCount() int {
	return len(g.nodeList)
}

// GetIncomingEdges returns all edges pointing into the given node.
func (g *WorkflowGraph) GetIncomingEdges(nodeID uuid.UUID) []domain.Edge {
	return g.reverseEdges[nodeID]
}

// GetOutgoingEdges returns all edges leaving the given node.
func (g *WorkflowGraph) GetOutgoingEdges(nodeID uuid.UUID) []domain.Edge {
	return g.forwardEdges[nodeID]
}

// GetPredecessors returns the IDs of nodes with an edge into the given node.
func (g *WorkflowGraph) GetPredecessors(nodeID uuid.UUID) []uuid.UUID {
	incoming := g.reverseEdges[nodeID]
	predecessors := make([]uuid.UUID, 0, len(incoming))
	for _, edge := range incoming {
		predecessors = append(predecessors, edge.FromNodeID())
	}
	return predecessors
}

// GetSuccessors returns the IDs of nodes reachable directly from the given node.
func (g *WorkflowGraph) GetSuccessors(nodeID uuid.UUID) []uuid.UUID {
	outgoing := g.forwardEdges[nodeID]
	successors := make([]uuid.UUID, 0, len(outgoing))
	for _, edge := range outgoing {
		successors = append(successors, edge.ToNodeID())
	}
	return successors
}

// GetEntryNodes returns all nodes with no incoming edges.
func (g *WorkflowGraph) GetEntryNodes() []uuid.UUID {
	var entry []uuid.UUID
	for id := range g.nodes {
		if len(g.reverseEdges[id]) == 0 {
			entry = append(entry, id)
		}
	}
	return entry
}

// GetExitNodes returns all nodes with no outgoing edges.
func (g *WorkflowGraph) GetExitNodes() []uuid.UUID {
	var exit []uuid.UUID
	for id := range g.nodes {
		if len(g.forwardEdges[id]) == 0 {
			exit = append(exit, id)
		}
	}
	return exit
}

// IsJoinNode reports whether a node has more than one incoming edge.
func (g *WorkflowGraph) IsJoinNode(nodeID uuid.UUID) bool {
	return len(g.reverseEdges[nodeID]) > 1
}

// IsForkNode reports whether a node has more than one outgoing edge.
func (g *WorkflowGraph) IsForkNode(nodeID uuid.UUID) bool {
	return len(g.forwardEdges[nodeID]) > 1
}

// GetJoinStrategy returns the join strategy configured on a node, defaulting
// to JoinStrategyWaitAll when unset.
func (g *WorkflowGraph) GetJoinStrategy(nodeID uuid.UUID) domain.JoinStrategy {
	node, ok := g.nodes[nodeID]
	if !ok {
		return domain.JoinStrategyWaitAll
	}

	if strategy, ok := node.Config()["join_strategy"].(string); ok && domain.JoinStrategy(strategy).IsValid() {
		return domain.JoinStrategy(strategy)
	}

	return domain.JoinStrategyWaitAll
}

// HasCycles checks if the graph contains cycles using DFS.
func (g *WorkflowGraph) HasCycles() bool {
	visited := make(map[uuid.UUID]bool)
	recStack := make(map[uuid.UUID]bool)

	for id := range g.nodes {
		if !visited[id] {
			if g.hasCyclesDFS(id, visited, recStack) {
				return true
			}
		}
	}

	return false
}

func (g *WorkflowGraph) hasCyclesDFS(nodeID uuid.UUID, visited, recStack map[uuid.UUID]bool) bool {
	visited[nodeID] = true
	recStack[nodeID] = true

	for _, nextID := range g.GetSuccessors(nodeID) {
		if !visited[nextID] {
			if g.hasCyclesDFS(nextID, visited, recStack) {
				return true
			}
		} else if recStack[nextID] {
			return true
		}
	}

	recStack[nodeID] = false
	return false
}

// TopologicalSort returns node IDs in topological order via Kahn's algorithm.
func (g *WorkflowGraph) TopologicalSort() ([]uuid.UUID, error) {
	if g.HasCycles() {
		return nil, fmt.Errorf("graph contains cycles, cannot perform topological sort")
	}

	inDegree := make(map[uuid.UUID]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.reverseEdges[id])
	}

	queue := make([]uuid.UUID, 0)
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]uuid.UUID, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, nextID := range g.GetSuccessors(id) {
			inDegree[nextID]--
			if inDegree[nextID] == 0 {
				queue = append(queue, nextID)
			}
		}
	}

	return result, nil
}

// GetParallelizableNodes partitions the graph into waves using level-based
// Kahn traversal: each wave contains every node whose dependencies were all
// satisfied by earlier waves, so nodes within a wave can execute in parallel.
func (g *WorkflowGraph) GetParallelizableNodes() ([][]uuid.UUID, error) {
	if g.HasCycles() {
		return nil, fmt.Errorf("graph contains cycles, cannot compute execution waves")
	}

	inDegree := make(map[uuid.UUID]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.reverseEdges[id])
	}

	remaining := len(g.nodes)
	var waves [][]uuid.UUID

	for remaining > 0 {
		var wave []uuid.UUID
		for id, degree := range inDegree {
			if degree == 0 {
				wave = append(wave, id)
			}
		}

		if len(wave) == 0 {
			return nil, fmt.Errorf("unable to resolve execution waves, remaining nodes form a cycle")
		}

		for _, id := range wave {
			delete(inDegree, id)
			remaining--
			for _, nextID := range g.GetSuccessors(id) {
				if _, ok := inDegree[nextID]; ok {
					inDegree[nextID]--
				}
			}
		}

		waves = append(waves, wave)
	}

	return waves, nil
}

// IsAncestor reports whether ancestorID has a directed path to descendantID.
// A node is never its own ancestor.
func (g *WorkflowGraph) IsAncestor(ancestorID, descendantID uuid.UUID) bool {
	if ancestorID == descendantID {
		return false
	}

	visited := make(map[uuid.UUID]bool)
	queue := g.GetSuccessors(ancestorID)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if id == descendantID {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		queue = append(queue, g.GetSuccessors(id)...)
	}

	return false
}

// ValidateEdgeDataSources checks the edge's "include_outputs_from" config
// (a list of node names) so that each referenced node both exists and is a
// true ancestor of the edge's destination node - rejecting typos, forward
// references, and self-references at graph-build time instead of failing
// silently during variable binding.
func (g *WorkflowGraph) ValidateEdgeDataSources(edge domain.Edge) error {
	raw, exists := edge.Config()["include_outputs_from"]
	if !exists {
		return nil
	}

	names, err := toStringSlice(raw)
	if err != nil {
		return domain.NewDomainError(
			domain.ErrCodeValidationFailed,
			fmt.Sprintf("edge %s: include_outputs_from must be a list of node names: %v", edge.ID(), err),
			nil,
		)
	}

	for _, name := range names {
		sourceNode, err := g.GetNodeByName(name)
		if err != nil {
			return domain.NewDomainError(
				domain.ErrCodeValidationFailed,
				fmt.Sprintf("edge %s: include_outputs_from references unknown node %q", edge.ID(), name),
				nil,
			)
		}

		if !g.IsAncestor(sourceNode.ID(), edge.ToNodeID()) {
			return domain.NewDomainError(
				domain.ErrCodeValidationFailed,
				fmt.Sprintf("edge %s: include_outputs_from node %q is not an ancestor of the edge's target node", edge.ID(), name),
				nil,
			)
		}
	}

	return nil
}

// toStringSlice accepts either a native []string (as constructed in Go code)
// or a []interface{} of strings (as decoded from JSON config), and rejects
// any other shape.
func toStringSlice(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			result = append(result, str)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("expected []string, got %T", raw)
	}
}
