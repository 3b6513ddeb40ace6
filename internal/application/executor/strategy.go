package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smilemakc/mbflow/internal/domain"
)

// Strategy decides how a planned workflow's nodes are actually driven to
// completion: one node at a time in plan order, wave-by-wave in parallel,
// or a choice between the two made per execution. WorkflowEngine holds a
// single configured Strategy; EngineConfig.Strategy lets a caller override
// it, and DefaultEngineConfig wires AdaptiveStrategy.
type Strategy interface {
	// Name identifies the strategy, e.g. in the strategy.selected event.
	Name() string

	// Execute drives execution to completion according to plan, returning
	// a summary of what ran alongside whatever error executeSequential or
	// executeWaves produced.
	Execute(ctx context.Context, engine *WorkflowEngine, execution domain.Execution, plan *ExecutionPlan) (*ExecutionResult, error)
}

// ExecutionStats summarizes how many nodes ended in each terminal state.
type ExecutionStats struct {
	TotalNodes     int
	CompletedNodes int
	FailedNodes    int
	SkippedNodes   int
	Duration       time.Duration
}

// StateExecutionRecord is a point-in-time snapshot of one node's outcome,
// taken after the strategy finishes running.
type StateExecutionRecord struct {
	NodeID     uuid.UUID
	NodeName   string
	NodeType   domain.NodeType
	Status     NodeStatus
	StartedAt  *time.Time
	FinishedAt *time.Time
	Error      string
}

// ExecutionResult is what a Strategy returns: which strategy ran, summary
// stats, and a per-node breakdown drawn from the execution's node states.
type ExecutionResult struct {
	ExecutionID uuid.UUID
	Strategy    string
	Stats       ExecutionStats
	States      []StateExecutionRecord
}

// buildExecutionResult reads back execution's node states (populated by
// Execution.StartNode/CompleteNode/FailNode/SkipNode as the strategy ran)
// into an ExecutionResult.
func buildExecutionResult(execution domain.Execution, plan *ExecutionPlan, strategyName string) *ExecutionResult {
	states := execution.GetAllNodeStates()
	result := &ExecutionResult{
		ExecutionID: execution.ID(),
		Strategy:    strategyName,
		Stats:       ExecutionStats{TotalNodes: plan.TotalNodes},
	}

	for _, nodeExec := range plan.Graph.GetAllNodes() {
		state, ok := states[nodeExec.ID()]
		record := StateExecutionRecord{
			NodeID:   nodeExec.ID(),
			NodeName: nodeExec.Name(),
			NodeType: nodeExec.Type(),
		}
		if ok {
			record.StartedAt = state.StartedAt()
			record.FinishedAt = state.FinishedAt()
			record.Error = state.Error()
			switch {
			case state.Status() == domain.NodeStatusCompleted:
				result.Stats.CompletedNodes++
			case state.Status() == domain.NodeStatusFailed:
				result.Stats.FailedNodes++
			case state.Status() == domain.NodeStatusSkipped:
				result.Stats.SkippedNodes++
			}
			record.Status = NodeStatus(state.Status())
		}
		result.States = append(result.States, record)
	}

	if execution.FinishedAt() != nil {
		result.Stats.Duration = execution.Duration()
	}

	return result
}

// SequentialStrategy executes plan's nodes one at a time in topological
// order. Simplest to reason about; no intra-wave concurrency at all.
type SequentialStrategy struct{}

func (SequentialStrategy) Name() string { return "sequential" }

func (s SequentialStrategy) Execute(ctx context.Context, engine *WorkflowEngine, execution domain.Execution, plan *ExecutionPlan) (*ExecutionResult, error) {
	err := engine.executeSequential(ctx, execution, plan)
	return buildExecutionResult(execution, plan, s.Name()), err
}

// ParallelStrategy executes plan's waves in order, running every node
// within a wave concurrently (bounded by EngineConfig.MaxParallelNodes).
type ParallelStrategy struct{}

func (ParallelStrategy) Name() string { return "parallel" }

func (s ParallelStrategy) Execute(ctx context.Context, engine *WorkflowEngine, execution domain.Execution, plan *ExecutionPlan) (*ExecutionResult, error) {
	err := engine.executeWaves(ctx, execution, plan)
	return buildExecutionResult(execution, plan, s.Name()), err
}

// AdaptiveStrategy picks SequentialStrategy or ParallelStrategy per
// execution, based on whether the plan actually has any wave wide enough
// to benefit from concurrency. MinParallelNodes defaults to 2 (any wave
// with at least two nodes runs in parallel) when left at zero.
type AdaptiveStrategy struct {
	MinParallelNodes int
}

func (AdaptiveStrategy) Name() string { return "adaptive" }

func (a AdaptiveStrategy) Execute(ctx context.Context, engine *WorkflowEngine, execution domain.Execution, plan *ExecutionPlan) (*ExecutionResult, error) {
	var selected Strategy = SequentialStrategy{}
	if shouldUseParallel(plan, a.MinParallelNodes) {
		selected = ParallelStrategy{}
	}

	if engine.eventBus != nil {
		engine.eventBus.Emit(ctx, "strategy.selected", map[string]any{
			"executionId": execution.ID().String(),
			"strategy":    selected.Name(),
			"totalNodes":  plan.TotalNodes,
			"waves":       plan.Depth,
		}, execution.CorrelationID().String())
	}

	result, err := selected.Execute(ctx, engine, execution, plan)
	if result != nil {
		result.Strategy = a.Name() + ":" + selected.Name()
	}
	return result, err
}

// shouldUseParallel reports whether plan has at least one wave wide enough
// to justify ParallelStrategy over SequentialStrategy.
func shouldUseParallel(plan *ExecutionPlan, minParallelNodes int) bool {
	if minParallelNodes <= 0 {
		minParallelNodes = 2
	}
	for _, wave := range plan.Waves {
		if len(wave.Nodes) >= minParallelNodes {
			return true
		}
	}
	return false
}
