package domain

import "github.com/google/uuid"

// ioSchemaConfigKey and bindingConfigConfigKey are the reserved config keys
// storage adapters use to round-trip a node's IO schema and input-binding
// configuration through its plain config map, so Node stays a single
// map[string]any payload on the wire.
const (
	ioSchemaConfigKey      = "_io_schema"
	bindingConfigConfigKey = "_binding_config"
)

// Node represents a step in a workflow. It is owned by the Workflow
// aggregate; callers never construct a Node directly, they go through
// Workflow.AddNode/UseNode and retrieve instances via GetNode/GetAllNodes.
type Node interface {
	ID() uuid.UUID
	Type() NodeType
	Name() string
	Config() map[string]any

	// IOSchema describes the variables this node reads and produces.
	// Nil means the node does not declare a schema (config is trusted as-is).
	IOSchema() *NodeIOSchema

	// InputBindingConfig controls how a multi-parent node merges the
	// outputs of its predecessors into its own inputs. Nil means the
	// engine default (auto-bind, namespace on collision) applies.
	InputBindingConfig() *InputBindingConfig

	// StateKind classifies this node's role in the execution graph (task,
	// condition, loop, parallel, wait, subprocess, end).
	StateKind() StateKind

	// Action describes what this node does when executed: its ActionKind
	// plus the config a NodeExecutor reads to do it.
	Action() Action
}

// node is the concrete implementation of Node held inside a workflow aggregate.
type node struct {
	id       uuid.UUID
	nodeType NodeType
	name     string
	config   map[string]any
}

// RestoreNode reconstructs a Node from persistence or from an API request
// carrying an explicit ID. IOSchema and InputBindingConfig, if present, are
// read from the reserved keys in config (see ioSchemaConfigKey,
// bindingConfigConfigKey) rather than passed separately.
func RestoreNode(id uuid.UUID, nodeType NodeType, name string, config map[string]any) Node {
	if config == nil {
		config = make(map[string]any)
	}
	return &node{id: id, nodeType: nodeType, name: name, config: config}
}

// NewNode creates a new Node with a generated ID.
func NewNode(nodeType NodeType, name string, config map[string]any) Node {
	return RestoreNode(uuid.New(), nodeType, name, config)
}

func (n *node) ID() uuid.UUID          { return n.id }
func (n *node) Type() NodeType         { return n.nodeType }
func (n *node) Name() string           { return n.name }
func (n *node) Config() map[string]any { return n.config }

func (n *node) IOSchema() *NodeIOSchema {
	schema, _ := n.config[ioSchemaConfigKey].(*NodeIOSchema)
	return schema
}

func (n *node) InputBindingConfig() *InputBindingConfig {
	binding, _ := n.config[bindingConfigConfigKey].(*InputBindingConfig)
	return binding
}
