package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smilemakc/mbflow/internal/domain"
	"github.com/smilemakc/mbflow/internal/infrastructure/eventbus"
	"github.com/smilemakc/mbflow/internal/infrastructure/monitoring"
	"github.com/smilemakc/mbflow/internal/resilience"
)

// WorkflowEngine is the main execution engine that orchestrates workflow execution
// using a three-phase architecture: Plan → Execute → Finalize
type WorkflowEngine struct {
	// Dependencies
	eventStore        domain.EventStore
	observerManager   *monitoring.ObserverManager
	planner           *ExecutionPlanner
	evaluator         *ConditionEvaluator
	templateProcessor *TemplateProcessor
	variableBinder    *VariableBinder

	// Node executors registry
	nodeExecutors map[domain.NodeType]NodeExecutor

	// resilience gates node execution with a per-node-type circuit breaker
	// and bulkhead when config.EnableCircuitBreaker is set
	resilience *resilience.Orchestrator

	// eventBus fans out lifecycle events (execution.*, node.*, strategy.*)
	// to any subscriber, independent of observerManager's fixed callback set.
	eventBus *eventbus.Bus

	// admission bounds how many ExecuteWorkflow calls may run concurrently
	// across the whole engine, distinct from a single wave's intra-wave
	// semaphore. Unbuffered (nil channel) when config.MaxConcurrentExecutions
	// is zero, meaning unbounded.
	admission chan struct{}

	// Configuration
	config EngineConfig
}

// EngineConfig holds configuration for the workflow engine
type EngineConfig struct {
	// Parallelism
	MaxParallelNodes int
	EnableParallel   bool

	// Strategy drives how a plan is executed. When nil, NewWorkflowEngine
	// wires AdaptiveStrategy if EnableParallel is true, SequentialStrategy
	// otherwise.
	Strategy Strategy

	// MaxConcurrentExecutions caps how many ExecuteWorkflow calls may run at
	// once across the whole engine. Zero means unbounded. Exceeding it fails
	// fast with a domain.ErrCodeCapacityExceeded error rather than queuing.
	MaxConcurrentExecutions int

	// Error handling
	DefaultErrorStrategy domain.ErrorStrategy

	// Retry
	EnableRetry       bool
	DefaultMaxRetries int
	DefaultRetryDelay time.Duration

	// Circuit breaker / bulkhead, keyed per node type
	EnableCircuitBreaker bool
	ResilienceConfig     resilience.OrchestratorConfig

	// Timeouts
	NodeExecutionTimeout     time.Duration
	WorkflowExecutionTimeout time.Duration

	// Monitoring
	EnableMetrics bool
	EnableTracing bool

	// Templating
	EnableTemplating    bool
	DefaultTemplateMode string
}

// DefaultEngineConfig returns default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxParallelNodes:         10,
		EnableParallel:           true,
		Strategy:                 AdaptiveStrategy{MinParallelNodes: 2},
		MaxConcurrentExecutions:  0,
		DefaultErrorStrategy:     domain.ErrorStrategyFailFast,
		EnableRetry:              true,
		DefaultMaxRetries:        3,
		DefaultRetryDelay:        time.Second,
		EnableCircuitBreaker:     false,
		ResilienceConfig:         resilience.DefaultOrchestratorConfig(),
		NodeExecutionTimeout:     5 * time.Minute,
		WorkflowExecutionTimeout: 30 * time.Minute,
		EnableMetrics:            true,
		EnableTracing:            false,
		EnableTemplating:         true,
		DefaultTemplateMode:      TemplateModeLenient,
	}
}

// NewWorkflowEngine creates a new workflow execution engine
func NewWorkflowEngine(eventStore domain.EventStore, observerManager *monitoring.ObserverManager, config EngineConfig) *WorkflowEngine {
	evaluator := NewConditionEvaluator(true)
	if config.Strategy == nil {
		if config.EnableParallel {
			config.Strategy = AdaptiveStrategy{MinParallelNodes: 2}
		} else {
			config.Strategy = SequentialStrategy{}
		}
	}
	var admission chan struct{}
	if config.MaxConcurrentExecutions > 0 {
		admission = make(chan struct{}, config.MaxConcurrentExecutions)
	}
	engine := &WorkflowEngine{
		eventStore:        eventStore,
		observerManager:   observerManager,
		planner:           NewExecutionPlanner(),
		evaluator:         evaluator,
		templateProcessor: NewTemplateProcessor(evaluator),
		variableBinder:    NewVariableBinder(evaluator),
		nodeExecutors:     make(map[domain.NodeType]NodeExecutor),
		resilience:        resilience.NewOrchestrator(config.ResilienceConfig),
		eventBus:          eventbus.New(),
		admission:         admission,
		config:            config,
	}

	// Register default node executors
	engine.registerDefaultExecutors()

	return engine
}

// EventBus returns the engine's event bus, for callers that want to
// subscribe to execution/node/strategy lifecycle events without
// implementing the full ExecutionObserver contract.
func (e *WorkflowEngine) EventBus() *eventbus.Bus {
	return e.eventBus
}

// RegisterNodeExecutor registers a custom node executor
func (e *WorkflowEngine) RegisterNodeExecutor(nodeType domain.NodeType, executor NodeExecutor) {
	e.nodeExecutors[nodeType] = executor
}

// registerDefaultExecutors registers built-in node executors
func (e *WorkflowEngine) registerDefaultExecutors() {
	RegisterDefaultExecutors(e)
}

// ExecuteWorkflow executes a workflow with the given trigger and initial variables
// This is the main entry point for workflow execution
func (e *WorkflowEngine) ExecuteWorkflow(
	ctx context.Context,
	workflow domain.Workflow,
	trigger domain.Trigger,
	initialVariables map[string]any,
) (domain.Execution, error) {
	if e.admission != nil {
		select {
		case e.admission <- struct{}{}:
			defer func() { <-e.admission }()
		default:
			return nil, domain.NewCapacityExceededError("concurrent executions", e.config.MaxConcurrentExecutions)
		}
	}

	// Generate execution ID
	executionID := uuid.New()

	// Create execution aggregate
	execution, err := domain.NewExecution(executionID, workflow.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}
	applyTriggerIdentity(execution, trigger)

	// Phase 1: Planning
	plan, err := e.planExecution(ctx, workflow, execution)
	if err != nil {
		return nil, fmt.Errorf("planning phase failed: %w", err)
	}

	e.eventBus.Emit(ctx, "execution.started", map[string]any{
		"executionId": execution.ID().String(),
		"workflowId":  workflow.ID().String(),
	}, execution.CorrelationID().String())

	// Phase 2: Execute
	err = e.executeWorkflow(ctx, workflow, execution, trigger, plan, initialVariables)
	if err != nil {
		// Execution phase failed - finalize with error
		_ = e.finalizeExecution(ctx, execution, err)
		e.eventBus.Emit(ctx, "execution.failed", map[string]any{
			"executionId": execution.ID().String(),
			"error":       err.Error(),
		}, execution.CorrelationID().String())
		return execution, err
	}

	// Phase 3: Finalize
	err = e.finalizeExecution(ctx, execution, nil)
	if err != nil {
		return execution, fmt.Errorf("finalization phase failed: %w", err)
	}

	e.eventBus.Emit(ctx, "execution.completed", map[string]any{
		"executionId": execution.ID().String(),
		"workflowId":  workflow.ID().String(),
	}, execution.CorrelationID().String())

	return execution, nil
}

// applyTriggerIdentity copies user_id and correlation_id out of the
// trigger's config, when present, onto the execution. This is how a
// trigger fired by an upstream system (a webhook carrying a correlation
// header, a scheduled run acting on behalf of a service account) threads
// its identity through to every event the execution raises.
func applyTriggerIdentity(execution domain.Execution, trigger domain.Trigger) {
	if trigger == nil {
		return
	}
	config := trigger.Config()
	if config == nil {
		return
	}
	if userID, ok := config["user_id"].(string); ok && userID != "" {
		execution.SetUserID(userID)
	}
	if raw, ok := config["correlation_id"]; ok {
		switch v := raw.(type) {
		case string:
			if id, err := uuid.Parse(v); err == nil {
				execution.SetCorrelationID(id)
			}
		case uuid.UUID:
			execution.SetCorrelationID(v)
		}
	}
}

// planExecution - Phase 1: Planning
// Validates workflow, builds graph, creates execution plan
func (e *WorkflowEngine) planExecution(
	ctx context.Context,
	workflow domain.Workflow,
	execution domain.Execution,
) (*ExecutionPlan, error) {
	// Validate workflow
	if err := workflow.Validate(); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	// Create execution plan
	plan, err := e.planner.CreatePlan(workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution plan: %w", err)
	}

	// Validate plan
	if err := e.planner.ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("execution plan validation failed: %w", err)
	}

	return plan, nil
}

// executeWorkflow - Phase 2: Execute
// Executes nodes according to the plan
func (e *WorkflowEngine) executeWorkflow(
	ctx context.Context,
	workflow domain.Workflow,
	execution domain.Execution,
	trigger domain.Trigger,
	plan *ExecutionPlan,
	initialVariables map[string]any,
) error {
	// Check trigger condition
	if !trigger.IsActive() || !trigger.ShouldTrigger(initialVariables) {
		return domain.NewDomainError(
			domain.ErrCodeValidationFailed,
			"trigger condition not met",
			nil,
		)
	}
	// Start execution
	if err := execution.Start(trigger.ID(), initialVariables); err != nil {
		return fmt.Errorf("failed to start execution: %w", err)
	}

	// Notify observers
	if e.observerManager != nil {
		e.observerManager.NotifyExecutionStarted(workflow.ID().String(), execution.ID().String())
	}

	// Persist start event
	if err := e.persistEvents(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist start event: %w", err)
	}

	// Drive the plan through the configured strategy (adaptive by default,
	// or explicitly sequential/parallel - see EngineConfig.Strategy).
	_, err := e.config.Strategy.Execute(ctx, e, execution, plan)
	return err
}

// executeWaves executes nodes in waves (parallel execution within each wave)
func (e *WorkflowEngine) executeWaves(
	ctx context.Context,
	execution domain.Execution,
	plan *ExecutionPlan,
) error {
	for waveNum, wave := range plan.Waves {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Execute wave in parallel
		if err := e.executeWave(ctx, execution, wave, plan.Graph); err != nil {
			return fmt.Errorf("wave %d failed: %w", waveNum, err)
		}

		// Persist events after each wave
		if err := e.persistEvents(ctx, execution); err != nil {
			return fmt.Errorf("failed to persist events after wave %d: %w", waveNum, err)
		}
	}

	return nil
}

// executeWave executes all nodes in a wave in parallel
func (e *WorkflowEngine) executeWave(
	ctx context.Context,
	execution domain.Execution,
	wave ExecutionWave,
	graph *WorkflowGraph,
) error {
	// Limit parallelism
	maxParallel := e.config.MaxParallelNodes
	if len(wave.Nodes) < maxParallel {
		maxParallel = len(wave.Nodes)
	}

	// Create semaphore for limiting concurrent executions
	semaphore := make(chan struct{}, maxParallel)

	var wg sync.WaitGroup
	errChan := make(chan error, len(wave.Nodes))

	for _, nodeExec := range wave.Nodes {
		wg.Add(1)

		go func(ne NodeExecution) {
			defer wg.Done()

			// Acquire semaphore
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			// Execute node
			if err := e.executeNode(ctx, execution, ne, graph); err != nil {
				errChan <- err
			}
		}(nodeExec)
	}

	// Wait for all nodes to complete
	wg.Wait()
	close(errChan)

	// Check for errors
	var errors []error
	for err := range errChan {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		// Handle based on error strategy
		return e.handleWaveErrors(errors)
	}

	return nil
}

// executeNode executes a single node
func (e *WorkflowEngine) executeNode(
	ctx context.Context,
	execution domain.Execution,
	nodeExec NodeExecution,
	graph *WorkflowGraph,
) error {
	node := nodeExec.Node
	nodeID := node.ID()
	nodeName := node.Name()
	workflowID := execution.WorkflowID().String()
	// Check if node should be skipped (conditional edges)
	shouldExecute, err := e.shouldExecuteNode(execution, nodeID, graph)
	if err != nil {
		return err
	}

	if !shouldExecute {
		// Skip node
		err := execution.SkipNode(nodeID, node.Name(), "conditional edge evaluated to false")
		e.eventBus.Emit(ctx, "node.skipped", map[string]any{
			"executionId": execution.ID().String(),
			"nodeId":      nodeID.String(),
			"nodeName":    node.Name(),
		}, execution.CorrelationID().String())
		return err
	}

	// Get node executor
	executor, exists := e.nodeExecutors[node.Type()]
	if !exists {
		return domain.NewDomainError(
			domain.ErrCodeNotFound,
			fmt.Sprintf("no executor registered for node type %s", node.Type()),
			nil,
		)
	}

	// Bind inputs using VariableBinder
	nodeInputs, err := e.variableBinder.BindInputs(node, graph, execution)
	if err != nil {
		return fmt.Errorf("failed to bind inputs for node %s: %w", node.Name(), err)
	}

	// Start node execution (store bound inputs in event)
	inputVars := nodeInputs.Variables.All()
	if err := execution.StartNode(nodeID, node.Name(), node.Type(), inputVars); err != nil {
		return err
	}

	// Notify observers
	if e.observerManager != nil {
		e.observerManager.NotifyNodeStarted(workflowID, execution.ID().String(), node, 1)
	}
	e.eventBus.Emit(ctx, "node.started", map[string]any{
		"executionId": execution.ID().String(),
		"nodeId":      nodeID.String(),
		"nodeName":    node.Name(),
		"nodeType":    string(node.Type()),
	}, execution.CorrelationID().String())

	// Preprocess node config with templating (using scoped variables)
	if e.config.EnableTemplating {
		templateConfig := extractTemplateConfig(node.Config(), e.config.DefaultTemplateMode)

		// Merge scoped + global for templating
		templateVars := nodeInputs.Variables.Clone()
		_ = templateVars.Merge(nodeInputs.GlobalContext)

		processedConfig, err := e.templateProcessor.ProcessMap(
			node.Config(),
			templateVars.All(),
			templateConfig,
		)
		if err != nil {
			return fmt.Errorf("template processing failed for node %s: %w", node.Name(), err)
		}
		node = cloneNodeWithConfig(node, processedConfig)
	}

	// Execute node with timeout
	execCtx, cancel := context.WithTimeout(ctx, e.config.NodeExecutionTimeout)
	defer cancel()

	startTime := time.Now()
	var output map[string]any
	if e.config.EnableCircuitBreaker {
		output, err = e.executeGuarded(execCtx, node, nodeInputs, executor)
	} else {
		output, err = executor.Execute(execCtx, node, nodeInputs)
	}
	duration := time.Since(startTime)

	if err != nil {
		// Node execution failed
		if err := execution.FailNode(nodeID, node.Name(), node.Type(), err.Error(), 0); err != nil {
			return err
		}

		// Notify observers
		if e.observerManager != nil {
			e.observerManager.NotifyNodeFailed(workflowID, execution.ID().String(), node, err, duration, false)
		}
		e.eventBus.Emit(ctx, "node.failed", map[string]any{
			"executionId": execution.ID().String(),
			"nodeId":      nodeID.String(),
			"nodeName":    node.Name(),
			"error":       err.Error(),
		}, execution.CorrelationID().String())

		// Check if we should retry (check both global config and per-node config)
		if e.config.EnableRetry {
			retryConfig := GetRetryConfig(node)
			if retryConfig.Enabled {
				return e.retryNode(ctx, execution, nodeExec, executor, graph)
			}
		}

		return fmt.Errorf("node %s failed: %w", node.Name(), err)
	}

	// Filter output to schema if defined
	if schema := node.IOSchema(); schema != nil && schema.Outputs != nil {
		output = e.filterOutputToSchema(output, schema.Outputs)
	}

	// Node execution succeeded
	if err := execution.CompleteNode(nodeID, node.Name(), node.Type(), output, duration); err != nil {
		return err
	}

	// Notify observers
	if e.observerManager != nil {
		e.observerManager.NotifyNodeCompleted(workflowID, execution.ID().String(), node, output, duration)
	}
	e.eventBus.Emit(ctx, "node.completed", map[string]any{
		"executionId": execution.ID().String(),
		"nodeId":      nodeID.String(),
		"nodeName":    node.Name(),
	}, execution.CorrelationID().String())

	// Store node output separately
	if err := execution.SetNodeOutput(nodeID, output); err != nil {
		return err
	}
	if err := execution.Variables().Set(nodeName, output); err != nil {
		return err
	}

	return nil
}

// executeGuarded runs the node executor through the orchestrator's
// per-node-type bulkhead and circuit breaker. A tripped breaker or a full
// bulkhead surfaces as an ordinary node error, which the caller's normal
// failure/retry path then handles.
func (e *WorkflowEngine) executeGuarded(
	ctx context.Context,
	node domain.Node,
	inputs *NodeExecutionInputs,
	executor NodeExecutor,
) (map[string]any, error) {
	var output map[string]any
	key := string(node.Type())

	err := e.resilience.Call(ctx, key, func(ctx context.Context) error {
		out, execErr := executor.Execute(ctx, node, inputs)
		output = out
		return execErr
	})

	return output, err
}

// filterOutputToSchema filters output to only include keys declared in the schema
func (e *WorkflowEngine) filterOutputToSchema(
	output map[string]any,
	schema *domain.VariableSchema,
) map[string]any {
	filtered := make(map[string]any)

	for key, value := range output {
		if _, exists := schema.GetDefinition(key); exists {
			// Key is in schema - include it
			filtered[key] = value
		}
	}

	return filtered
}

// shouldExecuteNode checks if a node should be executed this visit.
//
// A node is reached once per distinct predecessor: Direct/Fork/Join edges
// are always-active transitions (they preserve fork/join semantics across
// distinct source nodes), but when a single source node has more than one
// outgoing Conditional edge, only the single highest-priority edge whose
// guard evaluates true is an active transition out of that source - ties
// broken by definition order. This mirrors a state machine visiting exactly
// one outgoing transition per state, rather than a DAG where every
// satisfied guard fires independently.
func (e *WorkflowEngine) shouldExecuteNode(
	execution domain.Execution,
	nodeID uuid.UUID,
	graph *WorkflowGraph,
) (bool, error) {
	incomingEdges := graph.GetIncomingEdges(nodeID)
	if len(incomingEdges) == 0 {
		// Entry node - always execute
		return true, nil
	}

	seenSources := make(map[uuid.UUID]bool)
	for _, edge := range incomingEdges {
		sourceID := edge.FromNodeID()
		if seenSources[sourceID] {
			continue
		}
		seenSources[sourceID] = true

		transitions, err := e.activeTransitions(execution, sourceID, graph)
		if err != nil {
			return false, err
		}
		for _, t := range transitions {
			if t.To() == nodeID {
				return true, nil
			}
		}
	}

	return false, nil
}

// activeTransitions resolves every active transition out of sourceID: every
// non-conditional (Direct/Fork/Join) outgoing edge, plus - among that
// source's conditional outgoing edges - only the single highest-Priority
// edge whose guard evaluates true (ties broken by definition order, i.e.
// the edge's position in graph.GetOutgoingEdges(sourceID)). Lower-priority
// conditional siblings are not traversed even when their guard also
// evaluates true.
func (e *WorkflowEngine) activeTransitions(
	execution domain.Execution,
	sourceID uuid.UUID,
	graph *WorkflowGraph,
) ([]domain.Transition, error) {
	outgoing := graph.GetOutgoingEdges(sourceID)

	var transitions []domain.Transition
	var conditional []domain.Edge
	for _, edge := range outgoing {
		if edge.Type() == domain.EdgeTypeConditional {
			conditional = append(conditional, edge)
			continue
		}
		transitions = append(transitions, domain.NewTransition(edge, true))
	}

	if len(conditional) == 0 {
		return transitions, nil
	}

	sort.SliceStable(conditional, func(i, j int) bool {
		pi, pj := conditional[i].Priority(), conditional[j].Priority()
		if pi != pj {
			return pi > pj // descending priority: highest value wins
		}
		return indexOf(outgoing, conditional[i].ID()) < indexOf(outgoing, conditional[j].ID())
	})

	for _, edge := range conditional {
		result, err := e.evaluator.EvaluateEdge(edge, execution.Variables())
		if err != nil {
			return nil, err
		}
		if result {
			transitions = append(transitions, domain.NewTransition(edge, true))
			break
		}
	}

	return transitions, nil
}

// indexOf returns edgeID's position within edges, used as the definition-
// order tiebreaker for equal-priority conditional edges.
func indexOf(edges []domain.Edge, edgeID uuid.UUID) int {
	for i, edge := range edges {
		if edge.ID() == edgeID {
			return i
		}
	}
	return -1
}

// retryNode retries a failed node execution
func (e *WorkflowEngine) retryNode(
	ctx context.Context,
	execution domain.Execution,
	nodeExec NodeExecution,
	executor NodeExecutor,
	graph *WorkflowGraph,
) error {
	node := nodeExec.Node
	nodeID := node.ID()
	workflowID := execution.WorkflowID().String()
	// Get retry configuration from node config
	retryConfig := GetRetryConfig(node)
	if !retryConfig.Enabled {
		// Retry not enabled for this node
		return fmt.Errorf("node %s failed and retry is not enabled", node.Name())
	}

	// Create retry policy from config
	policy := CreateRetryPolicy(retryConfig)

	// Attempt retries
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		// Calculate delay
		delay := e.calculateRetryDelay(policy, attempt)

		// Notify observers about retry
		if e.observerManager != nil && attempt > 1 {
			e.observerManager.NotifyNodeRetrying(workflowID, execution.ID().String(), node, attempt, delay)
		}

		// Wait before retry
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// Continue with retry
		}

		// Bind inputs for retry
		nodeInputs, bindErr := e.variableBinder.BindInputs(node, graph, execution)
		if bindErr != nil {
			lastErr = fmt.Errorf("failed to bind inputs: %w", bindErr)
			continue
		}

		// Retry node execution
		startTime := time.Now()
		output, err := executor.Execute(ctx, node, nodeInputs)
		duration := time.Since(startTime)

		if err == nil {
			// Retry succeeded
			if err := execution.CompleteNode(nodeID, node.Name(), node.Type(), output, duration); err != nil {
				return err
			}

			// Notify observers
			if e.observerManager != nil {
				e.observerManager.NotifyNodeCompleted(workflowID, execution.ID().String(), node, output, duration)
			}

			// Store output in variables if configured
			if outputKey, ok := node.Config()["output_key"].(string); ok && outputKey != "" {
				if err := execution.SetVariable(outputKey, output, domain.ScopeExecution, uuid.Nil); err != nil {
					return err
				}
			}

			return nil
		}

		lastErr = err

		// Update failure with retry count
		if err := execution.FailNode(nodeID, node.Name(), node.Type(), err.Error(), attempt); err != nil {
			return err
		}

		// Notify observers
		if e.observerManager != nil {
			willRetry := attempt < policy.MaxAttempts
			e.observerManager.NotifyNodeFailed(workflowID, execution.ID().String(), node, err, duration, willRetry)
		}
	}

	// All retries exhausted
	return fmt.Errorf("node %s failed after %d retry attempts: %w", node.Name(), policy.MaxAttempts, lastErr)
}

// calculateRetryDelay calculates the delay before the next retry
func (e *WorkflowEngine) calculateRetryDelay(policy *RetryPolicy, attempt int) time.Duration {
	return resilience.Delay(policy.toDomainPolicy(), attempt)
}

// executeSequential executes nodes sequentially (fallback when parallel is disabled)
func (e *WorkflowEngine) executeSequential(
	ctx context.Context,
	execution domain.Execution,
	plan *ExecutionPlan,
) error {
	// Get topological order
	order, err := plan.Graph.TopologicalSort()
	if err != nil {
		return err
	}

	// Execute nodes in order
	for _, nodeID := range order {
		node, err := plan.Graph.GetNode(nodeID)
		if err != nil {
			return err
		}

		nodeExec := NodeExecution{
			NodeID:       nodeID,
			Node:         node,
			Dependencies: plan.Graph.GetPredecessors(nodeID),
		}

		if err := e.executeNode(ctx, execution, nodeExec, plan.Graph); err != nil {
			return err
		}

		// Persist events after each node
		if err := e.persistEvents(ctx, execution); err != nil {
			return err
		}
	}

	return nil
}

// handleWaveErrors handles errors that occurred during wave execution
func (e *WorkflowEngine) handleWaveErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}

	// Based on error strategy
	switch e.config.DefaultErrorStrategy {
	case domain.ErrorStrategyFailFast:
		// Return first error
		return errors[0]

	case domain.ErrorStrategyContinueOnError:
		// Errors are recorded on their nodes already; the wave itself
		// proceeds as if nothing failed
		return nil

	case domain.ErrorStrategyBestEffort:
		// Log errors but continue
		// For now, just return nil
		return nil

	default:
		return errors[0]
	}
}

// finalizeExecution - Phase 3: Finalize
// Completes execution, runs compensations if needed
func (e *WorkflowEngine) finalizeExecution(
	ctx context.Context,
	execution domain.Execution,
	executionErr error,
) error {
	if executionErr != nil {
		// Execution failed - mark as failed
		if err := execution.Fail(executionErr.Error(), uuid.Nil); err != nil {
			return err
		}

		// Notify observers
		if e.observerManager != nil {
			duration := time.Since(execution.StartedAt())
			e.observerManager.NotifyExecutionFailed(execution.WorkflowID().String(), execution.ID().String(), executionErr, duration)
		}
	} else {
		// Execution succeeded - mark as completed
		finalVars := execution.Variables().All()
		if err := execution.Complete(finalVars); err != nil {
			return err
		}

		// Notify observers
		if e.observerManager != nil {
			duration := time.Since(execution.StartedAt())
			e.observerManager.NotifyExecutionCompleted(execution.WorkflowID().String(), execution.ID().String(), duration)
		}
	}

	// Persist final events
	if err := e.persistEvents(ctx, execution); err != nil {
		return err
	}

	return nil
}

// persistEvents persists uncommitted events from execution
func (e *WorkflowEngine) persistEvents(ctx context.Context, execution domain.Execution) error {
	events := execution.GetUncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	// Persist events atomically
	if err := e.eventStore.AppendEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to persist events: %w", err)
	}

	// Mark events as committed
	execution.MarkEventsAsCommitted()

	return nil
}

// GetExecution retrieves an execution by ID (rebuilds from events)
func (e *WorkflowEngine) GetExecution(ctx context.Context, executionID, workflowID uuid.UUID) (domain.Execution, error) {
	// Get events
	events, err := e.eventStore.GetEvents(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	if len(events) == 0 {
		return nil, domain.NewDomainError(
			domain.ErrCodeNotFound,
			fmt.Sprintf("execution %s not found", executionID),
			nil,
		)
	}

	// Rebuild execution from events
	execution, err := domain.RebuildFromEvents(executionID, workflowID, events)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild execution: %w", err)
	}

	return execution, nil
}

// extractTemplateConfig extracts template configuration from node config
func extractTemplateConfig(config map[string]any, defaultMode string) TemplateConfig {
	templateConfig := TemplateConfig{
		StrictMode: defaultMode == TemplateModeStrict,
		Fields:     nil, // Empty means all fields
	}

	// Check if node has template_config
	if tc, ok := config["template_config"].(map[string]any); ok {
		// Extract mode
		if mode, ok := tc["mode"].(string); ok {
			templateConfig.StrictMode = mode == TemplateModeStrict
		}

		// Extract fields
		if fields, ok := tc["fields"].([]interface{}); ok {
			strFields := make([]string, 0, len(fields))
			for _, f := range fields {
				if str, ok := f.(string); ok {
					strFields = append(strFields, str)
				}
			}
			templateConfig.Fields = strFields
		}
	}

	return templateConfig
}

// cloneNodeWithConfig creates a new node with processed config
// This preserves the node's identity but uses the templated config
func cloneNodeWithConfig(node domain.Node, processedConfig map[string]any) domain.Node {
	return &templateNode{
		original:        node,
		processedConfig: processedConfig,
	}
}

// templateNode wraps a node with processed config
type templateNode struct {
	original        domain.Node
	processedConfig map[string]any
}

func (tn *templateNode) ID() uuid.UUID {
	return tn.original.ID()
}

func (tn *templateNode) Type() domain.NodeType {
	return tn.original.Type()
}

func (tn *templateNode) Name() string {
	return tn.original.Name()
}

func (tn *templateNode) Config() map[string]any {
	return tn.processedConfig
}

func (tn *templateNode) IOSchema() *domain.NodeIOSchema {
	return tn.original.IOSchema()
}

func (tn *templateNode) InputBindingConfig() *domain.InputBindingConfig {
	return tn.original.InputBindingConfig()
}

func (tn *templateNode) StateKind() domain.StateKind {
	return tn.original.StateKind()
}

func (tn *templateNode) Action() domain.Action {
	return domain.Action{Kind: tn.original.Action().Kind, Config: tn.Config()}
}

// NodeExecutor defines the interface for node executors
type NodeExecutor interface {
	Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error)
}

// NoOpExecutor is a no-operation executor for start/end nodes
type NoOpExecutor struct{}

func (e *NoOpExecutor) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	return make(map[string]any), nil
}
