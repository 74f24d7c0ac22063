package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// noCondition marks a policy row without an attribute condition.
const noCondition = "*"

// compiled evaluators, keyed by expression
var bexprCache = &sync.Map{}

// BexprMatchFunction returns the bexprMatch function registered with casbin.
// It evaluates a policy condition against the request subject attributes.
func BexprMatchFunction() func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("bexprMatch requires 2 arguments: condition, attributes")
		}

		cond, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("bexprMatch: first argument must be string (condition)")
		}

		attrs, ok := args[1].(map[string]any)
		if !ok {
			return false, fmt.Errorf("bexprMatch: second argument must be map[string]any (attributes)")
		}

		return EvaluateBexpr(cond, attrs), nil
	}
}

// EvaluateBexpr evaluates cond against attrs. An empty or "*" condition
// always matches; invalid expressions and evaluation errors never match.
func EvaluateBexpr(cond string, attrs map[string]any) bool {
	cond = strings.TrimSpace(cond)
	if cond == "" || cond == noCondition {
		return true
	}

	var evaluator *bexpr.Evaluator
	if cached, ok := bexprCache.Load(cond); ok {
		evaluator = cached.(*bexpr.Evaluator)
	} else {
		compiled, err := bexpr.CreateEvaluator(cond)
		if err != nil {
			return false
		}
		bexprCache.Store(cond, compiled)
		evaluator = compiled
	}

	matches, err := evaluator.Evaluate(attrs)
	if err != nil {
		return false
	}
	return matches
}
