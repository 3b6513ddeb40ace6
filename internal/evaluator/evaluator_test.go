package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_ConditionRouting(t *testing.T) {
	e := New()
	vars := map[string]any{"numVar": 42, "boolVar": true}

	result, err := e.EvaluateBool("numVar > 40 && boolVar", vars)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluate_MissingVariableIsFalsy(t *testing.T) {
	e := New()
	vars := map[string]any{"numVar": 42}

	result, err := e.EvaluateBool("numVar > 40 && boolVar", vars)
	require.NoError(t, err)
	assert.False(t, result)
}

func TestEvaluate_ArrayLength(t *testing.T) {
	e := New()
	vars := map[string]any{"items": []any{"x", "y", "z"}}

	result, err := e.EvaluateBool("len(items) == 3", vars)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluate_UnparseableExpressionFails(t *testing.T) {
	e := New()
	_, err := e.Evaluate("numVar >>> 40", map[string]any{"numVar": 1})
	require.Error(t, err)
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
}

func TestEvaluate_CompiledProgramIsCached(t *testing.T) {
	e := New()
	vars := map[string]any{"x": 1}

	_, err := e.EvaluateBool("x == 1", vars)
	require.NoError(t, err)

	e.mu.RLock()
	_, cached := e.programs["x == 1"]
	e.mu.RUnlock()
	assert.True(t, cached)
}

func TestToBool_CoercionRule(t *testing.T) {
	assert.False(t, ToBool(nil))
	assert.False(t, ToBool(Undefined{}))
	assert.False(t, ToBool(0))
	assert.False(t, ToBool(""))
	assert.False(t, ToBool([]any{}))
	assert.True(t, ToBool("x"))
	assert.True(t, ToBool(1))
	assert.True(t, ToBool([]any{1}))
}
