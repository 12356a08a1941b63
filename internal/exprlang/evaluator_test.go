package exprlang

import (
	"testing"
	"time"

	"github.com/irfndi/neuratrade/internal/indicators"
	"github.com/irfndi/neuratrade/internal/series"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsAscending() []indicators.Bar {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []indicators.Bar{
		{
			Date: base, Open: decimal.NewFromInt(9), High: decimal.NewFromInt(11),
			Low: decimal.NewFromInt(8), Close: decimal.NewFromInt(10),
			AdjustedClose: decimal.NewFromInt(9), HasAdjustedClose: true,
			Volume: decimal.NewFromInt(100),
		},
		{
			Date: base.AddDate(0, 0, 1), Open: decimal.NewFromInt(10), High: decimal.NewFromInt(13),
			Low: decimal.NewFromInt(9), Close: decimal.NewFromInt(12),
			AdjustedClose: decimal.NewFromInt(11), HasAdjustedClose: true,
			Volume: decimal.NewFromInt(150),
		},
	}
}

func seriesOf(vals ...float64) series.Series {
	out := make([]series.Value, len(vals))
	for i, v := range vals {
		out[i] = series.OfFloat(v)
	}
	return series.New(out)
}

func TestEvaluate_PercentChangeScenario(t *testing.T) {
	ctx := Context{"Close": SeriesValue(seriesOf(110, 100))}
	v, err := Evaluate("(Close / Close[1] - 1) * 100", ctx, FunctionTable{})
	require.NoError(t, err)

	n, ok := v.AsNumber()
	require.True(t, ok)
	rounded, _ := n.Round(2).Float64()
	assert.Equal(t, 10.0, rounded)
}

func TestEvaluate_CrossoverScenario(t *testing.T) {
	ctx := Context{
		"Fast": SeriesValue(seriesOf(105, 100)),
		"Slow": SeriesValue(seriesOf(102, 101)),
	}
	v, err := Evaluate("Fast crossover Slow", ctx, FunctionTable{})
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestEvaluate_DivisionByZeroIsFatal(t *testing.T) {
	ctx := Context{"Close": SeriesValue(seriesOf(10, 0))}
	_, err := Evaluate("Close / Close[1]", ctx, FunctionTable{})
	require.Error(t, err)

	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
}

func TestEvaluate_UnknownIdentifierIsMissingNotError(t *testing.T) {
	v, err := Evaluate("Nonexistent > 0", Context{}, FunctionTable{})
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}

func TestEvaluate_UnknownFunctionIsFatal(t *testing.T) {
	_, err := Evaluate("Bogus(14)", Context{}, FunctionTable{})
	require.Error(t, err)
}

func TestEvaluate_ChainedComparisonLeftFolds(t *testing.T) {
	// a < b < c becomes (a<b) < c: bool(true)=1 compared numerically to c.
	ctx := Context{
		"a": SeriesValue(seriesOf(1)),
		"b": SeriesValue(seriesOf(2)),
		"c": SeriesValue(seriesOf(1)),
	}
	v, err := Evaluate("a < b < c", ctx, FunctionTable{})
	require.NoError(t, err)
	// (1 < 2) -> true -> 1; 1 < 1 is false.
	assert.False(t, v.AsBool())
}

func TestEvaluate_ChainedComparisonLeftFoldTrueChangesOutcome(t *testing.T) {
	// Same shape as above, but c=2 so (a<b)=true=1 compared against c=2
	// is true: the left sub-comparison's truthiness must actually affect
	// the outcome, not collapse to false regardless of operands.
	ctx := Context{
		"a": SeriesValue(seriesOf(1)),
		"b": SeriesValue(seriesOf(2)),
		"c": SeriesValue(seriesOf(2)),
	}
	v, err := Evaluate("a < b < c", ctx, FunctionTable{})
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestEvaluate_NamedOperatorsCaseInsensitive(t *testing.T) {
	ctx := Context{"Close": SeriesValue(seriesOf(10))}
	v, err := Evaluate("Close above 5", ctx, FunctionTable{})
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestEvaluate_IndexingNonSeriesIsFatal(t *testing.T) {
	_, err := Evaluate("1[0]", Context{}, FunctionTable{})
	require.Error(t, err)
}

func TestEvaluate_AndOrShortCircuit(t *testing.T) {
	ctx := Context{"Close": SeriesValue(seriesOf(10))}
	v, err := Evaluate("Close > 100 AND Bogus(1) > 0", ctx, FunctionTable{})
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}

func TestParse_UnexpectedTrailingToken(t *testing.T) {
	_, err := Parse("1 2")
	require.Error(t, err)
}

func TestBuildContext_CurrentPriceOverlaysCloseOnly(t *testing.T) {
	bars := barsAscending()
	price := decimal.NewFromInt(999)
	ctx, err := BuildContext(bars, nil, &price)
	require.NoError(t, err)

	closeVal := ctx["Close"].Series.ValueAt(0)
	require.True(t, closeVal.Valid)
	f, _ := closeVal.Float64()
	assert.Equal(t, 999.0, f)

	adjVal := ctx["price.adjusted_close"].Series.ValueAt(0)
	require.True(t, adjVal.Valid)
	adjF, _ := adjVal.Float64()
	assert.NotEqual(t, 999.0, adjF)
}
