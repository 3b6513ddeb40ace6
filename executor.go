package mbflow

import (
	"context"

	"github.com/smilemakc/mbflow/internal/application/executor"
	"github.com/smilemakc/mbflow/internal/infrastructure/monitoring"
)

// EngineConfig configures an Engine's parallelism, retry, circuit-breaking,
// timeout, and observability behavior.
type EngineConfig = executor.EngineConfig

// DefaultEngineConfig returns a conservative configuration suitable for most
// workflows: bounded parallelism, retry on transient node failures, and
// metrics enabled.
func DefaultEngineConfig() EngineConfig {
	return executor.DefaultEngineConfig()
}

// Engine runs workflows: given a Workflow, a Trigger, and initial variables,
// it plans node execution order, runs nodes respecting edges, conditions,
// and join strategies, and returns the resulting Execution.
type Engine struct {
	inner   *executor.WorkflowEngine
	metrics *monitoring.MetricsCollector
	observe *monitoring.ObserverManager
}

// NewEngine builds an Engine backed by the given event store (for
// persisting execution events) and configuration. The returned Engine has
// the built-in start, end, condition, loop, parallel, wait and timer
// executors registered; call RegisterDefaultExecutors or
// RegisterNodeExecutor to add the remaining node types.
func NewEngine(eventStore EventStore, config EngineConfig) *Engine {
	observerManager := monitoring.NewObserverManager()
	metrics := monitoring.NewMetricsCollector()
	observerManager.AddObserver(monitoring.NewCompositeObserver(nil, metrics, nil))

	return &Engine{
		inner:   executor.NewWorkflowEngine(eventStore, observerManager, config),
		metrics: metrics,
		observe: observerManager,
	}
}

// RegisterNodeExecutor registers a handler for the given node type.
func (e *Engine) RegisterNodeExecutor(nodeType NodeType, exec executor.NodeExecutor) {
	e.inner.RegisterNodeExecutor(nodeType, exec)
}

// RegisterDefaultExecutors wires in the built-in node executors (OpenAI
// completion/responses, HTTP request, Telegram message, conditional
// routing, data merging/aggregation, script execution, JSON parsing).
// apiKey is used as the fallback OpenAI API key for nodes that don't
// supply their own.
func (e *Engine) RegisterDefaultExecutors(apiKey string) {
	for nodeType, exec := range executor.DefaultLegacyExecutors(apiKey, e.metrics) {
		e.inner.RegisterNodeExecutor(nodeType, exec)
	}
}

// AddObserver registers an observer for execution and node lifecycle events.
func (e *Engine) AddObserver(observer ExecutionObserver) {
	e.observe.AddObserver(observer)
}

// RemoveObserver unregisters a previously added observer.
func (e *Engine) RemoveObserver(observer ExecutionObserver) {
	e.observe.RemoveObserver(observer)
}

// Metrics returns the engine's metrics collector.
func (e *Engine) Metrics() ExecutorMetrics {
	return e.metrics
}

// ExecuteWorkflow runs workflow to completion (or failure) using trigger to
// seed the execution and initialVariables as the initial global context.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflow Workflow, trigger Trigger, initialVariables map[string]any) (Execution, error) {
	return e.inner.ExecuteWorkflow(ctx, workflow, trigger, initialVariables)
}
