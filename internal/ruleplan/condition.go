package ruleplan

import (
	"strings"

	"github.com/irfndi/neuratrade/internal/exprlang"
)

// crossoverOps always evaluate false in the structured condition form;
// expression form must be used for crossovers (§4.5, documented
// limitation — not a bug to silently "fix").
var crossoverOps = map[string]bool{
	"crosses_above": true,
	"crossover":     true,
	"crosses_below": true,
	"crossunder":    true,
}

// EvaluateCondition evaluates a structured condition node against a
// context lookup function. Composite nodes (all/any/not) recurse;
// atomic nodes resolve left/right against the context, collapsing a
// series value to its value_at(0) reading, and compare. A missing
// operand resolves to false, never an error.
func EvaluateCondition(cond Condition, lookup func(name string) exprlang.Value) (bool, error) {
	if len(cond.All) > 0 {
		for _, item := range cond.All {
			ok, err := EvaluateCondition(item, lookup)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if len(cond.Any) > 0 {
		for _, item := range cond.Any {
			ok, err := EvaluateCondition(item, lookup)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	if cond.Not != nil {
		ok, err := EvaluateCondition(*cond.Not, lookup)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}

	op := strings.ToLower(cond.Op)
	if crossoverOps[op] {
		return false, nil
	}

	left := scalarAt0(lookup(cond.Left))
	right := scalarAt0(lookup(cond.Right))
	if left.IsMissing() || right.IsMissing() {
		return false, nil
	}
	l, _ := left.AsNumber()
	r, _ := right.AsNumber()

	switch op {
	case "gt":
		return l.GreaterThan(r), nil
	case "gte":
		return l.GreaterThanOrEqual(r), nil
	case "lt":
		return l.LessThan(r), nil
	case "lte":
		return l.LessThanOrEqual(r), nil
	case "eq":
		return l.Equal(r), nil
	case "ne":
		return !l.Equal(r), nil
	}
	return false, exprlang.NewFatalError("unsupported structured condition operator: %s", cond.Op)
}

func scalarAt0(v exprlang.Value) exprlang.Value {
	if v.Kind == exprlang.ValueSeries {
		return exprlang.FromSeriesValue(v.Series.ValueAt(0))
	}
	return v
}
