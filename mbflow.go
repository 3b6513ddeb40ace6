// Package mbflow is the public SDK surface for the workflow execution
// engine. It re-exports the domain model and the execution engine so
// callers can build, persist, and run workflows without reaching into
// internal packages directly.
package mbflow

import (
	"github.com/smilemakc/mbflow/internal/domain"
	"github.com/smilemakc/mbflow/internal/infrastructure/monitoring"
)

// Core domain aggregates and entities.
type (
	Workflow  = domain.Workflow
	Node      = domain.Node
	Edge      = domain.Edge
	Trigger   = domain.Trigger
	Execution = domain.Execution
	Event     = domain.Event
)

// Value types describing workflow structure and execution state.
type (
	NodeType       = domain.NodeType
	EdgeType       = domain.EdgeType
	TriggerType    = domain.TriggerType
	WorkflowState  = domain.WorkflowState
	ExecutionPhase = domain.ExecutionPhase
	ErrorStrategy  = domain.ErrorStrategy
	JoinStrategy   = domain.JoinStrategy

	VariableSet        = domain.VariableSet
	VariableSchema      = domain.VariableSchema
	NodeIOSchema        = domain.NodeIOSchema
	InputBindingConfig  = domain.InputBindingConfig
)

// Persistence interfaces. Storage is the unified repository an engine or
// CLI needs; the narrower interfaces are exposed for callers that only
// need one concern (e.g. an EventStore-only read model).
type (
	Storage             = domain.Storage
	WorkflowRepository  = domain.WorkflowRepository
	ExecutionRepository = domain.ExecutionRepository
	EventStore          = domain.EventStore
)

// Node type constants, re-exported from the domain package for callers
// building workflows through this package.
const (
	NodeTypeStart                = domain.NodeTypeStart
	NodeTypeEnd                  = domain.NodeTypeEnd
	NodeTypeTransform            = domain.NodeTypeTransform
	NodeTypeHTTP                 = domain.NodeTypeHTTP
	NodeTypeLLM                  = domain.NodeTypeLLM
	NodeTypeCode                 = domain.NodeTypeCode
	NodeTypeParallel             = domain.NodeTypeParallel
	NodeTypeConditionalRoute     = domain.NodeTypeConditionalRoute
	NodeTypeDataMerger           = domain.NodeTypeDataMerger
	NodeTypeDataAggregator       = domain.NodeTypeDataAggregator
	NodeTypeScriptExecutor       = domain.NodeTypeScriptExecutor
	NodeTypeJSONParser           = domain.NodeTypeJSONParser
	NodeTypeOpenAICompletion     = domain.NodeTypeOpenAICompletion
	NodeTypeOpenAIResponses      = domain.NodeTypeOpenAIResponses
	NodeTypeHTTPRequest          = domain.NodeTypeHTTPRequest
	NodeTypeTelegramMessage      = domain.NodeTypeTelegramMessage
	NodeTypeFunctionCall         = domain.NodeTypeFunctionCall
	NodeTypeFunctionExecution    = domain.NodeTypeFunctionExecution
	NodeTypeOpenAIFunctionResult = domain.NodeTypeOpenAIFunctionResult
)

// Edge type constants.
const (
	EdgeTypeDirect      = domain.EdgeTypeDirect
	EdgeTypeConditional = domain.EdgeTypeConditional
	EdgeTypeFork        = domain.EdgeTypeFork
	EdgeTypeJoin        = domain.EdgeTypeJoin
)

// Trigger type constants.
const (
	TriggerTypeManual   = domain.TriggerTypeManual
	TriggerTypeAuto     = domain.TriggerTypeAuto
	TriggerTypeHTTP     = domain.TriggerTypeHTTP
	TriggerTypeSchedule = domain.TriggerTypeSchedule
	TriggerTypeEvent    = domain.TriggerTypeEvent
)

// Workflow lifecycle state constants.
const (
	WorkflowStateDraft     = domain.WorkflowStateDraft
	WorkflowStatePublished = domain.WorkflowStatePublished
	WorkflowStateArchived  = domain.WorkflowStateArchived
)

// Error handling strategy constants.
const (
	ErrorStrategyFailFast        = domain.ErrorStrategyFailFast
	ErrorStrategyContinueOnError = domain.ErrorStrategyContinueOnError
	ErrorStrategyRequireN        = domain.ErrorStrategyRequireN
	ErrorStrategyBestEffort      = domain.ErrorStrategyBestEffort
)

// Join strategy constants, governing how a join node waits on its incoming branches.
const (
	JoinStrategyWaitAll   = domain.JoinStrategyWaitAll
	JoinStrategyWaitAny   = domain.JoinStrategyWaitAny
	JoinStrategyWaitFirst = domain.JoinStrategyWaitFirst
	JoinStrategyWaitN     = domain.JoinStrategyWaitN
)

// ExecutionObserver is notified of workflow and node lifecycle events as an
// engine runs a workflow. Register implementations via Engine.AddObserver.
type ExecutionObserver = monitoring.ExecutionObserver

// ExecutorMetrics is the read surface of the engine's metrics collector,
// exposed here so callers (e.g. DisplayMetrics) don't need to import the
// monitoring package directly.
type ExecutorMetrics interface {
	GetSummary() *monitoring.MetricsSummary
	GetWorkflowMetrics(workflowID string) *monitoring.WorkflowMetrics
	GetNodeMetricsByID(nodeID string) *monitoring.NodeMetrics
	GetAIMetrics() *monitoring.AIMetrics
}

// Metrics value types, re-exported from the monitoring package.
type (
	WorkflowMetrics = monitoring.WorkflowMetrics
	NodeMetrics     = monitoring.NodeMetrics
	AIMetrics       = monitoring.AIMetrics
	MetricsSummary  = monitoring.MetricsSummary
	MetricsSnapshot = monitoring.MetricsSnapshot
)
