package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smilemakc/mbflow/internal/domain"
)

// ConditionExecutor evaluates a single boolean expression and reports which
// of the node's three configured branches is active. It does not itself
// redirect the graph walk - the node's outgoing conditional edges carry a
// condition referencing this node's output (e.g. "conditionNode.result ==
// true"), and shouldExecuteNode's priority-ordered evaluation picks the
// matching one, exactly as it does for any other conditional edge.
type ConditionExecutor struct {
	evaluator *ConditionEvaluator
}

// NewConditionExecutor creates a ConditionExecutor backed by evaluator.
func NewConditionExecutor(evaluator *ConditionEvaluator) *ConditionExecutor {
	return &ConditionExecutor{evaluator: evaluator}
}

func (ce *ConditionExecutor) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	cfg, err := parseConfig[ConditionConfig](node.Config())
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "invalid condition node config", err)
	}
	if cfg.Expression == "" {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "condition node has no expression", nil)
	}

	vars := inputs.Variables.Clone()
	if inputs.GlobalContext != nil {
		_ = vars.Merge(inputs.GlobalContext)
	}

	outputKey := cfg.OutputKey
	if outputKey == "" {
		outputKey = "result"
	}

	result, err := ce.evaluator.Evaluate(cfg.Expression, vars.All())
	if err != nil {
		if cfg.DefaultNodeID == "" {
			return nil, fmt.Errorf("condition node %s: %w", node.Name(), err)
		}
		return map[string]any{
			outputKey:      false,
			"next_node_id": cfg.DefaultNodeID,
			"error":        err.Error(),
		}, nil
	}

	nextNodeID := cfg.FalseNodeID
	if result {
		nextNodeID = cfg.TrueNodeID
	}

	return map[string]any{
		outputKey:      result,
		"next_node_id": nextNodeID,
	}, nil
}

// defaultLoopMaxIterations bounds a loop node's iteration count when no
// explicit max_iterations is configured (for foreach loops too, where it caps
// the number of items processed), so a misconfigured loop cannot spin forever.
const defaultLoopMaxIterations = 1000

// LoopExecutor repeats its configured body action once per element of a
// foreach collection, or up to max_iterations times, collecting each
// iteration's output. It looks up the body's executor from the same
// registry WorkflowEngine uses for ordinary nodes, so a loop body can be
// any registered node type.
type LoopExecutor struct {
	executors map[domain.NodeType]NodeExecutor
}

// NewLoopExecutor creates a LoopExecutor that dispatches loop bodies through
// executors (typically the engine's own node executor registry, passed by
// reference so executors registered after construction are still visible).
func NewLoopExecutor(executors map[domain.NodeType]NodeExecutor) *LoopExecutor {
	return &LoopExecutor{executors: executors}
}

func (le *LoopExecutor) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	cfg, err := parseConfig[LoopConfig](node.Config())
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "invalid loop node config", err)
	}
	if cfg.Body.Type == "" {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "loop node has no body", nil)
	}
	bodyExecutor, ok := le.executors[domain.NodeType(cfg.Body.Type)]
	if !ok {
		return nil, domain.NewDomainError(
			domain.ErrCodeNotFound,
			fmt.Sprintf("no executor registered for loop body type %q", cfg.Body.Type),
			nil,
		)
	}

	itemVar := cfg.ItemVar
	if itemVar == "" {
		itemVar = "item"
	}
	indexVar := cfg.IndexVar
	if indexVar == "" {
		indexVar = "index"
	}

	var items []any
	if cfg.Foreach != "" {
		raw, ok := inputs.Variables.Get(cfg.Foreach)
		if !ok && inputs.GlobalContext != nil {
			raw, ok = inputs.GlobalContext.Get(cfg.Foreach)
		}
		if !ok {
			return nil, domain.NewDomainError(
				domain.ErrCodeInvalidInput,
				fmt.Sprintf("loop node %s: foreach variable %q not found", node.Name(), cfg.Foreach),
				nil,
			)
		}
		items, err = toAnySlice(raw)
		if err != nil {
			return nil, domain.NewDomainError(
				domain.ErrCodeInvalidType,
				fmt.Sprintf("loop node %s: foreach variable %q is not a list", node.Name(), cfg.Foreach),
				err,
			)
		}
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultLoopMaxIterations
	}

	iterations := maxIterations
	if items != nil && len(items) < iterations {
		iterations = len(items)
	}

	results := make([]map[string]any, 0, iterations)
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		iterVars := inputs.Variables.Clone()
		_ = iterVars.Set(indexVar, i)
		if items != nil {
			_ = iterVars.Set(itemVar, items[i])
		}

		bodyNode := domain.NewNode(domain.NodeType(cfg.Body.Type), fmt.Sprintf("%s[%d]", node.Name(), i), cfg.Body.Config)
		bodyInputs := &NodeExecutionInputs{
			Variables:     iterVars,
			GlobalContext: inputs.GlobalContext,
			ExecutionID:   inputs.ExecutionID,
			WorkflowID:    inputs.WorkflowID,
		}

		output, err := bodyExecutor.Execute(ctx, bodyNode, bodyInputs)
		if err != nil {
			return nil, fmt.Errorf("loop node %s: iteration %d failed: %w", node.Name(), i, err)
		}
		results = append(results, output)

		if brk, ok := output["break"].(bool); ok && brk {
			break
		}
	}

	return map[string]any{
		"results":    results,
		"iterations": len(results),
	}, nil
}

// toAnySlice coerces a loop's foreach source into a []any, accepting the
// shapes JSON/variable storage commonly produces.
func toAnySlice(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %T is not a list", raw)
	}
}

// ParallelExecutor runs a node's configured branch actions concurrently.
// With WaitForAll it behaves like JoinStrategyWaitAll, returning only once
// every branch has finished and aggregating every branch error; otherwise
// it returns as soon as one branch succeeds and cancels the rest via their
// own per-branch context, failing only if every branch fails.
type ParallelExecutor struct {
	executors map[domain.NodeType]NodeExecutor
}

// NewParallelExecutor creates a ParallelExecutor that dispatches branches
// through executors (typically the engine's own node executor registry).
func NewParallelExecutor(executors map[domain.NodeType]NodeExecutor) *ParallelExecutor {
	return &ParallelExecutor{executors: executors}
}

func (pe *ParallelExecutor) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	cfg, err := parseConfig[ParallelConfig](node.Config())
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "invalid parallel node config", err)
	}
	if len(cfg.Branches) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "parallel node has no branches", nil)
	}

	var perChildTimeout time.Duration
	if cfg.TimeoutPerChild != "" {
		perChildTimeout, err = time.ParseDuration(cfg.TimeoutPerChild)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "invalid timeout_per_child", err)
		}
	}

	n := len(cfg.Branches)
	results := make([]map[string]any, n)
	errs := make([]error, n)
	cancels := make([]context.CancelFunc, n)
	done := make(chan int, n)

	var missing []error
	for i, branch := range cfg.Branches {
		executor, ok := pe.executors[domain.NodeType(branch.Type)]
		if !ok {
			missing = append(missing, fmt.Errorf("no executor registered for parallel branch type %q", branch.Type))
			continue
		}

		branchCtx, cancel := context.WithCancel(ctx)
		if perChildTimeout > 0 {
			branchCtx, cancel = context.WithTimeout(ctx, perChildTimeout)
		}
		cancels[i] = cancel

		go func(i int, executor NodeExecutor, branch ActionSpec, branchCtx context.Context) {
			branchNode := domain.NewNode(domain.NodeType(branch.Type), fmt.Sprintf("%s[%d]", node.Name(), i), branch.Config)
			out, err := executor.Execute(branchCtx, branchNode, inputs)
			results[i] = out
			errs[i] = err
			done <- i
		}(i, executor, branch, branchCtx)
	}
	defer func() {
		for _, cancel := range cancels {
			if cancel != nil {
				cancel()
			}
		}
	}()

	if len(missing) == n {
		return nil, errors.Join(missing...)
	}

	running := n - len(missing)
	succeeded := false
	if cfg.WaitForAll {
		for i := 0; i < running; i++ {
			<-done
		}
	} else {
		for i := 0; i < running && !succeeded; i++ {
			succeeded = errs[<-done] == nil
		}
	}

	output := map[string]any{"branches": results}

	allErrs := append([]error{}, missing...)
	for _, e := range errs {
		if e != nil {
			allErrs = append(allErrs, e)
		}
	}
	if cfg.WaitForAll && len(allErrs) > 0 {
		return output, fmt.Errorf("parallel node %s: %w", node.Name(), errors.Join(allErrs...))
	}
	if !cfg.WaitForAll && !succeeded {
		return output, fmt.Errorf("parallel node %s: no branch succeeded: %w", node.Name(), errors.Join(allErrs...))
	}

	return output, nil
}

// WaitExecutor pauses for a configured duration, or returns immediately if
// none is set. Real suspend-and-resume (waiting on an external signal) is
// the responsibility of a caller-registered executor for domain.NodeTypeWait
// backed by the eventbus; this is the synchronous, fixed-delay case.
type WaitExecutor struct{}

func NewWaitExecutor() *WaitExecutor { return &WaitExecutor{} }

func (we *WaitExecutor) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	durationRaw, _ := node.Config()["duration"].(string)
	if durationRaw == "" {
		return map[string]any{}, nil
	}
	d, err := time.ParseDuration(durationRaw)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "invalid wait duration", err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return map[string]any{"waited": durationRaw}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TimerExecutor fires after a fixed delay, same mechanics as WaitExecutor
// but registered separately so callers can distinguish the two node types
// (a named delay vs. a scheduling primitive) in observers/metrics.
type TimerExecutor struct {
	wait *WaitExecutor
}

func NewTimerExecutor() *TimerExecutor { return &TimerExecutor{wait: NewWaitExecutor()} }

func (te *TimerExecutor) Execute(ctx context.Context, node domain.Node, inputs *NodeExecutionInputs) (map[string]any, error) {
	return te.wait.Execute(ctx, node, inputs)
}

// RegisterDefaultExecutors wires the built-in node executors that require no
// external credentials onto e: start/end no-ops and the condition/loop/
// parallel/wait/timer state-kind executors. Executors needing an API key
// (OpenAI, Telegram) or other secrets are registered separately by the
// caller via DefaultLegacyExecutors/RegisterNodeExecutor.
func RegisterDefaultExecutors(e *WorkflowEngine) {
	noop := &NoOpExecutor{}
	e.RegisterNodeExecutor(domain.NodeTypeStart, noop)
	e.RegisterNodeExecutor(domain.NodeTypeEnd, noop)

	e.RegisterNodeExecutor(domain.NodeTypeCondition, NewConditionExecutor(e.evaluator))
	e.RegisterNodeExecutor(domain.NodeTypeLoop, NewLoopExecutor(e.nodeExecutors))
	e.RegisterNodeExecutor(domain.NodeTypeParallel, NewParallelExecutor(e.nodeExecutors))
	e.RegisterNodeExecutor(domain.NodeTypeWait, NewWaitExecutor())
	e.RegisterNodeExecutor(domain.NodeTypeTimer, NewTimerExecutor())
}
