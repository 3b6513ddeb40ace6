// Package evaluator implements the sandboxed expression language used for
// transition conditions, guards, and loop conditions/iterators. It wraps
// expr-lang/expr rather than embedding a host language: expressions use
// expr's grammar (equality/inequality, numeric comparisons, logical
// and/or/not, array indexing, field access, arithmetic) and may call expr's
// built-in functions, such as len() for the length of an array. A
// `.length` member on an array is not recognized. The only values an
// expression can reach are the variables passed in.
package evaluator

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Undefined is the distinguished value a missing variable reference
// resolves to. It compares unequal to every non-Undefined value and is
// falsy wherever a boolean is required.
type Undefined struct{}

func (Undefined) String() string { return "undefined" }

// EvaluationError is returned when an expression cannot be parsed or uses
// syntax outside the accepted grammar. It is never retried by callers.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var reservedWords = map[string]struct{}{
	"true": {}, "false": {}, "nil": {}, "and": {}, "or": {}, "not": {},
	"in": {}, "matches": {}, "len": {},
}

// Evaluator compiles and runs expressions against a variable set, caching
// compiled programs by expression text so a hot transition condition is
// parsed once per process lifetime.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	badExprs map[string]*EvaluationError
}

// New creates an Evaluator with an empty compiled-program cache.
func New() *Evaluator {
	return &Evaluator{
		programs: make(map[string]*vm.Program),
		badExprs: make(map[string]*EvaluationError),
	}
}

// Evaluate runs expression against variables and returns its raw result
// (a bool, number, string, slice, or map), or an *EvaluationError if the
// expression does not parse.
func (e *Evaluator) Evaluate(expression string, variables map[string]any) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &EvaluationError{Expression: expression, Err: fmt.Errorf("empty expression")}
	}

	program, cerr := e.compile(expression)
	if cerr != nil {
		return nil, cerr
	}

	env, missing := envWithUndefined(expression, variables)

	result, err := expr.Run(program, env)
	if err != nil {
		if len(missing) > 0 && isMissingVariableFailure(err, missing) {
			// The only unresolved names are ones we know are absent from
			// the variable store; per the logical-AND/OR short-circuit
			// rule an Undefined operand renders the whole expression
			// falsy, which for a standalone boolean expression is `false`.
			return false, nil
		}
		return nil, &EvaluationError{Expression: expression, Err: err}
	}

	return result, nil
}

// EvaluateBool runs expression and coerces the result to bool using the
// rule: false for null/Undefined/0/""/empty array, true otherwise. Parse
// failures surface as *EvaluationError and are never coerced.
func (e *Evaluator) EvaluateBool(expression string, variables map[string]any) (bool, error) {
	result, err := e.Evaluate(expression, variables)
	if err != nil {
		return false, err
	}
	return ToBool(result), nil
}

// ToBool applies the spec's truthiness rule to an arbitrary evaluated
// value: false for nil/Undefined/zero-number/empty-string/empty-array,
// true for everything else.
func ToBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case Undefined:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func (e *Evaluator) compile(expression string) (*vm.Program, *EvaluationError) {
	e.mu.RLock()
	if p, ok := e.programs[expression]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	if bad, ok := e.badExprs[expression]; ok {
		e.mu.RUnlock()
		return nil, bad
	}
	e.mu.RUnlock()

	program, err := expr.Compile(expression)
	if err != nil {
		evalErr := &EvaluationError{Expression: expression, Err: err}
		e.mu.Lock()
		e.badExprs[expression] = evalErr
		e.mu.Unlock()
		return nil, evalErr
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()
	return program, nil
}

// envWithUndefined returns a copy of variables augmented with Undefined{}
// entries for every bare identifier the expression references that is absent from
// variables, plus the set of names that were added this way.
func envWithUndefined(expression string, variables map[string]any) (map[string]any, map[string]struct{}) {
	env := make(map[string]any, len(variables))
	for k, v := range variables {
		env[k] = v
	}

	missing := make(map[string]struct{})
	for _, match := range identifierPattern.FindAllStringIndex(expression, -1) {
		name := expression[match[0]:match[1]]
		if _, reserved := reservedWords[name]; reserved {
			continue
		}
		if match[0] > 0 && expression[match[0]-1] == '.' {
			// Field access like a.b: "b" is not a top-level variable.
			continue
		}
		if _, ok := env[name]; ok {
			continue
		}
		env[name] = Undefined{}
		missing[name] = struct{}{}
	}
	return env, missing
}

func isMissingVariableFailure(err error, missing map[string]struct{}) bool {
	msg := strings.ToLower(err.Error())
	for name := range missing {
		if strings.Contains(msg, strings.ToLower(name)) {
			return true
		}
	}
	// expr's own type-mismatch wording for a non-bool operand, which is
	// what an Undefined{} operand to && / || / ! surfaces as.
	generic := []string{"invalid operation", "cannot use", "expected bool", "unexpected type"}
	for _, g := range generic {
		if strings.Contains(msg, g) {
			return true
		}
	}
	return false
}
