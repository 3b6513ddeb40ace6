package executor

import (
	"context"

	"github.com/smilemakc/mbflow/internal/domain"
	"github.com/smilemakc/mbflow/internal/infrastructure/monitoring"
)

// legacyExecutorAdapter bridges a LegacyNodeExecutor (string-keyed,
// ExecutionContext-based) into the engine's NodeExecutor contract
// (domain.Node/NodeExecutionInputs-based), so the node-type business logic
// in node_executors.go stays reachable from WorkflowEngine without being
// rewritten against a new signature.
type legacyExecutorAdapter struct {
	legacy LegacyNodeExecutor
}

var _ NodeExecutor = (*legacyExecutorAdapter)(nil)

// AdaptLegacyExecutor wraps a LegacyNodeExecutor so it can be registered
// with WorkflowEngine.RegisterNodeExecutor.
func AdaptLegacyExecutor(legacy LegacyNodeExecutor) NodeExecutor {
	return &legacyExecutorAdapter{legacy: legacy}
}

func (a *legacyExecutorAdapter) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	state := NewExecutionState(inputs.ExecutionID, inputs.WorkflowID)

	if inputs.GlobalContext != nil {
		for k, v := range inputs.GlobalContext.ToMap() {
			state.SetVariable(k, v)
		}
	}
	if inputs.Variables != nil {
		for k, v := range inputs.Variables.ToMap() {
			state.SetVariable(k, v)
		}
	}

	execCtx := NewExecutionContext(ctx, state)

	output, err := a.legacy.Execute(ctx, execCtx, node.ID().String(), node.Config())
	if err != nil {
		return nil, err
	}

	if outMap, ok := output.(map[string]any); ok {
		return outMap, nil
	}
	if outMap, ok := output.(map[string]interface{}); ok {
		return outMap, nil
	}
	return map[string]any{"output": output}, nil
}

// DefaultLegacyExecutors returns the set of NodeExecutors adapted from the
// node-type business logic in node_executors.go, keyed by the domain.NodeType
// WorkflowEngine.RegisterNodeExecutor expects. apiKey is used as the fallback
// OpenAI API key when a node's config and execution context don't provide one.
func DefaultLegacyExecutors(apiKey string, metrics *monitoring.MetricsCollector) map[domain.NodeType]NodeExecutor {
	return map[domain.NodeType]NodeExecutor{
		domain.NodeTypeOpenAICompletion: AdaptLegacyExecutor(NewOpenAICompletionExecutorWithMetrics(apiKey, metrics)),
		domain.NodeTypeOpenAIResponses:  AdaptLegacyExecutor(NewOpenAIResponsesExecutorWithMetrics(apiKey, metrics)),
		domain.NodeTypeHTTPRequest:      AdaptLegacyExecutor(NewHTTPRequestExecutor()),
		domain.NodeTypeTelegramMessage:  AdaptLegacyExecutor(NewTelegramMessageExecutor()),
		domain.NodeTypeConditionalRoute: AdaptLegacyExecutor(NewConditionalRouterExecutor()),
		domain.NodeTypeDataMerger:       AdaptLegacyExecutor(NewDataMergerExecutor()),
		domain.NodeTypeDataAggregator:   AdaptLegacyExecutor(NewDataAggregatorExecutor()),
		domain.NodeTypeScriptExecutor:   AdaptLegacyExecutor(NewScriptExecutorExecutor()),
		domain.NodeTypeJSONParser:       AdaptLegacyExecutor(NewJSONParserExecutor()),
	}
}
