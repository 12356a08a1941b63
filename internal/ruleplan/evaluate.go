package ruleplan

import (
	"math"
	"sort"

	"github.com/irfndi/neuratrade/internal/exprlang"
)

func lookupFor(ctx exprlang.Context) func(string) exprlang.Value {
	return func(name string) exprlang.Value {
		v, ok := ctx[name]
		if !ok {
			return exprlang.Missing
		}
		return v
	}
}

func evalExprTruthy(expr string, ctx exprlang.Context, funcs exprlang.FunctionTable) (bool, error) {
	v, err := exprlang.Evaluate(expr, ctx, funcs)
	if err != nil {
		return false, err
	}
	return v.AsBool(), nil
}

// Evaluate runs the decision procedure of §4.3: for position_state
// "flat" it selects the lowest-priority firing entry rule (or blocks);
// for "holding" it OR-accumulates firing exit rules (or blocks).
// position_state must be PositionFlat or PositionHolding, else fatal.
func Evaluate(plan Plan, ctx exprlang.Context, funcs exprlang.FunctionTable, positionState string) (Decision, error) {
	if positionState != PositionFlat && positionState != PositionHolding {
		return Decision{}, exprlang.NewFatalError("position_state must be flat or holding, got %q", positionState)
	}

	lookup := lookupFor(ctx)

	if positionState == PositionFlat {
		return evaluateEntry(plan, ctx, funcs, lookup)
	}
	return evaluateExit(plan, ctx, funcs, lookup)
}

func evaluateEntry(plan Plan, ctx exprlang.Context, funcs exprlang.FunctionTable, lookup func(string) exprlang.Value) (Decision, error) {
	type candidate struct {
		rule     EntryRule
		priority int
	}
	var matching []candidate

	for _, rule := range plan.EntryRules {
		constraintsOK := true

		for _, c := range rule.Constraints {
			ok, err := EvaluateCondition(c, lookup)
			if err != nil {
				return Decision{}, err
			}
			if !ok {
				constraintsOK = false
				break
			}
		}
		if constraintsOK {
			for _, expr := range rule.ConstraintsExpr {
				ok, err := evalExprTruthy(expr, ctx, funcs)
				if err != nil {
					return Decision{}, err
				}
				if !ok {
					constraintsOK = false
					break
				}
			}
		}
		if !constraintsOK {
			continue
		}

		fires := false
		if rule.ConditionExpr != "" {
			ok, err := evalExprTruthy(rule.ConditionExpr, ctx, funcs)
			if err != nil {
				return Decision{}, err
			}
			fires = ok
		} else if rule.Condition != nil {
			ok, err := EvaluateCondition(*rule.Condition, lookup)
			if err != nil {
				return Decision{}, err
			}
			fires = ok
		}

		if fires {
			priority := math.MaxInt
			if rule.Priority != nil {
				priority = *rule.Priority
			}
			matching = append(matching, candidate{rule: rule, priority: priority})
		}
	}

	if len(matching) > 0 {
		sort.SliceStable(matching, func(i, j int) bool { return matching[i].priority < matching[j].priority })
		chosen := matching[0].rule
		id := chosen.ID
		if id == "" {
			id = "ENTRY"
		}
		reasons := []Reason{{Code: "ENTRY_TRIGGERED", Source: chosen.ID, SourceSet: true}}
		stateKey, err := BuildStateKey(DecisionAllow, ActionBuy, []string{id}, reasons)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Decision: DecisionAllow, Action: ActionBuy, StateKey: stateKey, Reasons: reasons}, nil
	}

	reasons := []Reason{{Code: "ENTRY_CONDITION_NOT_MET"}}
	stateKey, err := BuildStateKey(DecisionBlock, ActionNone, nil, reasons)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Decision: DecisionBlock, Action: ActionNone, StateKey: stateKey, Reasons: reasons}, nil
}

func evaluateExit(plan Plan, ctx exprlang.Context, funcs exprlang.FunctionTable, lookup func(string) exprlang.Value) (Decision, error) {
	var triggered []string

	for _, rule := range plan.ExitRules.Conditions {
		fired := false
		if rule.ConditionExpr != "" {
			ok, err := evalExprTruthy(rule.ConditionExpr, ctx, funcs)
			if err != nil {
				return Decision{}, err
			}
			fired = ok
		} else if rule.Condition != nil {
			ok, err := EvaluateCondition(*rule.Condition, lookup)
			if err != nil {
				return Decision{}, err
			}
			fired = ok
		}
		if fired {
			id := rule.ID
			if id == "" {
				id = "EXIT"
			}
			triggered = append(triggered, id)
		}
	}

	if len(triggered) > 0 {
		reasons := []Reason{{Code: "EXIT_TRIGGERED", Source: triggered[0], SourceSet: true}}
		stateKey, err := BuildStateKey(DecisionAllow, ActionSell, triggered, reasons)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Decision: DecisionAllow, Action: ActionSell, StateKey: stateKey, Reasons: reasons}, nil
	}

	reasons := []Reason{{Code: "EXIT_CONDITION_NOT_MET"}}
	stateKey, err := BuildStateKey(DecisionBlock, ActionNone, nil, reasons)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Decision: DecisionBlock, Action: ActionNone, StateKey: stateKey, Reasons: reasons}, nil
}
