package executor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smilemakc/mbflow/internal/domain"
	"github.com/smilemakc/mbflow/internal/evaluator"
)

// ConditionEvaluator provides centralized condition evaluation with caching.
// Expression compilation and undefined-variable semantics are delegated to
// evaluator.Evaluator; this type layers a per-variable-set result cache and
// the edge-specific wrapping on top.
type ConditionEvaluator struct {
	mu sync.RWMutex

	eval *evaluator.Evaluator

	// Cache for evaluation results (per execution)
	resultCache map[string]bool

	// Enable/disable caching
	enableCache bool

	// Debug mode for detailed logging
	debug bool
}

// NewConditionEvaluator creates a new condition evaluator
func NewConditionEvaluator(enableCache bool) *ConditionEvaluator {
	return &ConditionEvaluator{
		eval:        evaluator.New(),
		resultCache: make(map[string]bool),
		enableCache: enableCache,
		debug:       false,
	}
}

// SetDebug enables or disables debug logging
func (ce *ConditionEvaluator) SetDebug(debug bool) {
	ce.debug = debug
}

// ClearResultCache clears the result cache (should be called per execution)
func (ce *ConditionEvaluator) ClearResultCache() {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	ce.resultCache = make(map[string]bool)
}

// Evaluate evaluates a condition expression against variables
func (ce *ConditionEvaluator) Evaluate(condition string, variables map[string]any) (bool, error) {
	if condition == "" {
		return false, domain.NewDomainError(
			domain.ErrCodeInvalidInput,
			"condition cannot be empty",
			nil,
		)
	}

	// Check result cache
	if ce.enableCache {
		cacheKey := ce.makeResultCacheKey(condition, variables)
		ce.mu.RLock()
		result, cached := ce.resultCache[cacheKey]
		ce.mu.RUnlock()

		if cached {
			return result, nil
		}
	}

	// Normalize string values
	normalizedVars := normalizeVariables(variables)

	resultBool, err := ce.eval.EvaluateBool(condition, normalizedVars)
	if err != nil {
		var evalErr *evaluator.EvaluationError
		if errors.As(err, &evalErr) {
			if ce.debug {
				fmt.Printf("[ConditionEvaluator] failed to evaluate condition '%s': %v\n", condition, err)
			}
			varInfo := ce.formatVariablesForError(normalizedVars)
			return false, domain.NewDomainError(
				domain.ErrCodeInvalidInput,
				fmt.Sprintf("failed to evaluate condition '%s'%s", condition, varInfo),
				err,
			)
		}
		return false, err
	}

	// Cache result
	if ce.enableCache {
		cacheKey := ce.makeResultCacheKey(condition, variables)
		ce.mu.Lock()
		ce.resultCache[cacheKey] = resultBool
		ce.mu.Unlock()
	}

	return resultBool, nil
}

// EvaluateEdge evaluates a conditional edge
func (ce *ConditionEvaluator) EvaluateEdge(
	edge domain.Edge,
	variables *domain.VariableSet,
) (bool, error) {
	if edge.Type() != domain.EdgeTypeConditional {
		// Non-conditional edges are always active
		return true, nil
	}

	// Get condition from edge config
	config := edge.Config()
	conditionRaw, ok := config["condition"]
	if !ok {
		return false, domain.NewDomainError(
			domain.ErrCodeValidationFailed,
			fmt.Sprintf("conditional edge %s has no condition", edge.ID()),
			nil,
		)
	}

	condition, ok := conditionRaw.(string)
	if !ok {
		return false, domain.NewDomainError(
			domain.ErrCodeInvalidType,
			fmt.Sprintf("condition for edge %s is not a string", edge.ID()),
			nil,
		)
	}

	// Evaluate condition
	return ce.Evaluate(condition, variables.All())
}

// formatVariablesForError creates a formatted string of variables for error messages
func (ce *ConditionEvaluator) formatVariablesForError(variables map[string]any) string {
	if len(variables) == 0 {
		return " (no variables available)"
	}

	var varInfo []string
	for k, v := range variables {
		// Only include simple string values for readability
		if strVal, ok := v.(string); ok && len(strVal) < 100 {
			varInfo = append(varInfo, fmt.Sprintf("%s=%q", k, strVal))
		} else {
			varInfo = append(varInfo, fmt.Sprintf("%s=<%T>", k, v))
		}

		// Limit number of variables in error message
		if len(varInfo) >= 10 {
			varInfo = append(varInfo, "...")
			break
		}
	}

	if len(varInfo) > 0 {
		return fmt.Sprintf(" with variables [%s]", strings.Join(varInfo, ", "))
	}

	return ""
}

// makeResultCacheKey creates a cache key for result caching
func (ce *ConditionEvaluator) makeResultCacheKey(condition string, variables map[string]any) string {
	// Simple hash: condition + sorted variable names and values
	// For production, consider using a proper hash function
	var parts []string
	parts = append(parts, condition)

	// Add variable values that affect the condition
	// This is simplified - a full implementation would extract variables used in the condition
	for k, v := range variables {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts[1:])

	return strings.Join(parts, "|")
}

// normalizeVariables normalizes variable values for consistent evaluation
func normalizeVariables(variables map[string]any) map[string]any {
	normalized := make(map[string]any, len(variables))

	for k, v := range variables {
		normalized[k] = normalizeValue(v)
	}

	return normalized
}

// normalizeValue normalizes a single value
func normalizeValue(value any) any {
	switch v := value.(type) {
	case string:
		// Trim whitespace from strings
		return strings.TrimSpace(v)

	case map[string]any:
		// Recursively normalize maps
		normalized := make(map[string]any, len(v))
		for k, val := range v {
			normalized[k] = normalizeValue(val)
		}
		return normalized

	case []any:
		// Recursively normalize slices
		normalized := make([]any, len(v))
		for i, val := range v {
			normalized[i] = normalizeValue(val)
		}
		return normalized

	default:
		return v
	}
}

// BatchEvaluate evaluates multiple conditions at once (useful for optimization)
func (ce *ConditionEvaluator) BatchEvaluate(
	conditions map[string]string, // key -> condition
	variables map[string]any,
) (map[string]bool, error) {
	results := make(map[string]bool, len(conditions))

	for key, condition := range conditions {
		result, err := ce.Evaluate(condition, variables)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate condition for key '%s': %w", key, err)
		}
		results[key] = result
	}

	return results, nil
}

// GetCacheStats returns cache statistics
func (ce *ConditionEvaluator) GetCacheStats() map[string]int {
	ce.mu.RLock()
	defer ce.mu.RUnlock()

	return map[string]int{
		"result_cache_size": len(ce.resultCache),
	}
}
