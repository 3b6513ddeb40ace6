package domain

import "github.com/google/uuid"

// StateKind classifies what a workflow node represents in the execution
// graph, independent of which concrete NodeType drives it. Every NodeType
// maps onto exactly one StateKind (see classifyStateKind).
type StateKind string

const (
	StateKindTask       StateKind = "task"
	StateKindCondition  StateKind = "condition"
	StateKindLoop       StateKind = "loop"
	StateKindParallel   StateKind = "parallel"
	StateKindWait       StateKind = "wait"
	StateKindSubprocess StateKind = "subprocess"
	StateKindEnd        StateKind = "end"
)

// IsValid reports whether k is one of the known state kinds.
func (k StateKind) IsValid() bool {
	switch k {
	case StateKindTask, StateKindCondition, StateKindLoop, StateKindParallel,
		StateKindWait, StateKindSubprocess, StateKindEnd:
		return true
	default:
		return false
	}
}

func (k StateKind) String() string { return string(k) }

// classifyStateKind maps a node's NodeType onto the closed StateKind
// vocabulary. NodeType stays the wire-level, extensible vocabulary (it is
// what plugins register executors against); StateKind is the small, closed
// set the planner and engine reason about structurally (does this state
// branch, does it loop, does it suspend).
func classifyStateKind(nt NodeType) StateKind {
	switch nt {
	case NodeTypeEnd:
		return StateKindEnd
	case NodeTypeCondition, NodeTypeConditionalRoute:
		return StateKindCondition
	case NodeTypeLoop:
		return StateKindLoop
	case NodeTypeParallel:
		return StateKindParallel
	case NodeTypeWait, NodeTypeTimer, NodeTypeUserTask:
		return StateKindWait
	case NodeTypeSubprocess:
		return StateKindSubprocess
	default:
		return StateKindTask
	}
}

// StateKind returns the structural classification of this node.
func (n *node) StateKind() StateKind {
	return classifyStateKind(n.nodeType)
}

// ActionKind classifies what a task-kind node actually does when it
// executes: the shape of work a NodeExecutor performs, as opposed to
// StateKind's shape of control flow.
type ActionKind string

const (
	ActionKindPluginInvoke   ActionKind = "plugin-invoke"
	ActionKindNotification   ActionKind = "notification"
	ActionKindDatabase       ActionKind = "database"
	ActionKindAPICall        ActionKind = "api-call"
	ActionKindWait           ActionKind = "wait"
	ActionKindConditionCheck ActionKind = "condition-check"
	ActionKindParallel       ActionKind = "parallel"
	ActionKindSubprocess     ActionKind = "subprocess"
	ActionKindUserTask       ActionKind = "user-task"
	ActionKindTimer          ActionKind = "timer"
	ActionKindScript         ActionKind = "script"
)

// IsValid reports whether k is one of the known action kinds.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionKindPluginInvoke, ActionKindNotification, ActionKindDatabase,
		ActionKindAPICall, ActionKindWait, ActionKindConditionCheck,
		ActionKindParallel, ActionKindSubprocess, ActionKindUserTask,
		ActionKindTimer, ActionKindScript:
		return true
	default:
		return false
	}
}

func (k ActionKind) String() string { return string(k) }

// Action describes what a node does: its ActionKind plus its raw config.
// It is a read-only view derived from a Node, not a separately stored
// entity - Node remains the single source of truth on the wire.
type Action struct {
	Kind   ActionKind
	Config map[string]any
}

// classifyActionKind maps a node's NodeType onto the closed ActionKind
// vocabulary that RegisterDefaultExecutors and the plugin registry key off.
func classifyActionKind(nt NodeType) ActionKind {
	switch nt {
	case NodeTypeOpenAICompletion, NodeTypeOpenAIResponses, NodeTypeFunctionCall,
		NodeTypeFunctionExecution, NodeTypeOpenAIFunctionResult, NodeTypeLLM, NodeTypeCode:
		return ActionKindPluginInvoke
	case NodeTypeTelegramMessage:
		return ActionKindNotification
	case NodeTypeDatabaseQuery:
		return ActionKindDatabase
	case NodeTypeHTTP, NodeTypeHTTPRequest:
		return ActionKindAPICall
	case NodeTypeWait, NodeTypeTimer:
		return ActionKindTimer
	case NodeTypeCondition, NodeTypeConditionalRoute:
		return ActionKindConditionCheck
	case NodeTypeParallel:
		return ActionKindParallel
	case NodeTypeSubprocess:
		return ActionKindSubprocess
	case NodeTypeUserTask:
		return ActionKindUserTask
	case NodeTypeScriptExecutor:
		return ActionKindScript
	default:
		return ActionKindPluginInvoke
	}
}

// Action returns the action this node performs when executed. For
// StateKindEnd/Start nodes this is nominal (there is nothing to invoke).
func (n *node) Action() Action {
	return Action{Kind: classifyActionKind(n.nodeType), Config: n.config}
}

// Transition represents a single resolved move from one state to another
// during execution: the edge that was considered, and whether it actually
// fired. Direct/Fork/Join edges always fire; a Conditional edge fires only
// when its guard evaluated true and it won the priority selection among its
// sibling conditional edges (see WorkflowEngine.shouldExecuteNode).
type Transition struct {
	Edge      Edge
	Triggered bool
}

// NewTransition builds a resolved Transition over edge.
func NewTransition(edge Edge, triggered bool) Transition {
	return Transition{Edge: edge, Triggered: triggered}
}

// From returns the source node ID of the underlying edge.
func (t Transition) From() uuid.UUID { return t.Edge.FromNodeID() }

// To returns the destination node ID of the underlying edge.
func (t Transition) To() uuid.UUID { return t.Edge.ToNodeID() }

// Priority returns the underlying edge's priority, descending order wins
// (see Edge.Priority).
func (t Transition) Priority() int { return t.Edge.Priority() }
