package ruleplan

import (
	"strings"
	"testing"

	"github.com/irfndi/neuratrade/internal/exprlang"
	"github.com/irfndi/neuratrade/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeContext(vals ...float64) exprlang.Context {
	out := make([]series.Value, len(vals))
	for i, v := range vals {
		out[i] = series.OfFloat(v)
	}
	return exprlang.Context{"Close": exprlang.SeriesValue(series.New(out))}
}

func TestEvaluate_FlatEntryLiteralScenario(t *testing.T) {
	priority := 10
	plan := Plan{
		EntryRules: []EntryRule{
			{ID: "E1", Priority: &priority, ConditionExpr: "Close > 0"},
		},
	}
	ctx := closeContext(100)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Decision)
	assert.Equal(t, ActionBuy, decision.Action)
	require.Len(t, decision.Reasons, 1)
	assert.Equal(t, "ENTRY_TRIGGERED", decision.Reasons[0].Code)
	assert.Equal(t, "E1", decision.Reasons[0].Source)
	assert.True(t, strings.HasPrefix(decision.StateKey, "ALLOW_BUY_E1_"))
}

func TestEvaluate_FlatNoEntryFires_Blocks(t *testing.T) {
	plan := Plan{
		EntryRules: []EntryRule{
			{ID: "E1", ConditionExpr: "Close > 1000"},
		},
	}
	ctx := closeContext(100)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision.Decision)
	assert.Equal(t, ActionNone, decision.Action)
	assert.Equal(t, "ENTRY_CONDITION_NOT_MET", decision.Reasons[0].Code)
}

func TestEvaluate_FlatPriorityOrdering(t *testing.T) {
	low := 5
	high := 50
	plan := Plan{
		EntryRules: []EntryRule{
			{ID: "High", Priority: &high, ConditionExpr: "Close > 0"},
			{ID: "Low", Priority: &low, ConditionExpr: "Close > 0"},
		},
	}
	ctx := closeContext(100)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	assert.Equal(t, "Low", decision.Reasons[0].Source)
}

func TestEvaluate_FlatMissingPriorityDefaultsLast(t *testing.T) {
	withPriority := 1
	plan := Plan{
		EntryRules: []EntryRule{
			{ID: "NoPriority", ConditionExpr: "Close > 0"},
			{ID: "WithPriority", Priority: &withPriority, ConditionExpr: "Close > 0"},
		},
	}
	ctx := closeContext(100)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	assert.Equal(t, "WithPriority", decision.Reasons[0].Source)
}

func TestEvaluate_FlatConstraintsExprGatesEligibility(t *testing.T) {
	plan := Plan{
		EntryRules: []EntryRule{
			{ID: "E1", ConstraintsExpr: []string{"Close > 1000"}, ConditionExpr: "Close > 0"},
		},
	}
	ctx := closeContext(100)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision.Decision)
}

func TestEvaluate_HoldingExitFires(t *testing.T) {
	plan := Plan{
		ExitRules: ExitRuleSet{Conditions: []ExitRule{
			{ID: "X1", ConditionExpr: "Close < 50"},
		}},
	}
	ctx := closeContext(10)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionHolding)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Decision)
	assert.Equal(t, ActionSell, decision.Action)
	assert.Equal(t, "X1", decision.Reasons[0].Source)
}

func TestEvaluate_HoldingNoExitFires_Blocks(t *testing.T) {
	plan := Plan{
		ExitRules: ExitRuleSet{Conditions: []ExitRule{
			{ID: "X1", ConditionExpr: "Close < 50"},
		}},
	}
	ctx := closeContext(100)

	decision, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionHolding)
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision.Decision)
	assert.Equal(t, "EXIT_CONDITION_NOT_MET", decision.Reasons[0].Code)
}

func TestEvaluate_InvalidPositionStateIsFatal(t *testing.T) {
	_, err := Evaluate(Plan{}, exprlang.Context{}, exprlang.FunctionTable{}, "bogus")
	require.Error(t, err)
}

func TestEvaluate_IsDeterministicAcrossRuns(t *testing.T) {
	plan := Plan{
		EntryRules: []EntryRule{{ID: "E1", ConditionExpr: "Close > 0"}},
	}
	ctx := closeContext(100)

	d1, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	d2, err := Evaluate(plan, ctx, exprlang.FunctionTable{}, PositionFlat)
	require.NoError(t, err)
	assert.Equal(t, d1.StateKey, d2.StateKey)
}

func TestEvaluateCondition_StructuredAllAnyNot(t *testing.T) {
	ctx := closeContext(100)
	lookup := func(name string) exprlang.Value {
		v, ok := ctx[name]
		if !ok {
			return exprlang.Missing
		}
		return v
	}

	allCond := Condition{All: []Condition{
		{Op: "gt", Left: "Close", Right: "Zero"},
	}}
	ctx["Zero"] = exprlang.NumberValue(ctx["Close"].Series.ValueAt(0).Decimal.Sub(ctx["Close"].Series.ValueAt(0).Decimal))

	ok, err := EvaluateCondition(allCond, lookup)
	require.NoError(t, err)
	assert.True(t, ok)

	anyCond := Condition{Any: []Condition{
		{Op: "lt", Left: "Close", Right: "Zero"},
		{Op: "gt", Left: "Close", Right: "Zero"},
	}}
	ok, err = EvaluateCondition(anyCond, lookup)
	require.NoError(t, err)
	assert.True(t, ok)

	notCond := Condition{Not: &allCond}
	ok, err = EvaluateCondition(notCond, lookup)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCondition_CrossoverOpsAlwaysFalse(t *testing.T) {
	ctx := closeContext(100)
	lookup := func(name string) exprlang.Value {
		v, ok := ctx[name]
		if !ok {
			return exprlang.Missing
		}
		return v
	}
	cond := Condition{Op: "crossover", Left: "Close", Right: "Close"}
	ok, err := EvaluateCondition(cond, lookup)
	require.NoError(t, err)
	assert.False(t, ok)
}
