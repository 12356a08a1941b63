package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestSMA_LiteralScenario(t *testing.T) {
	got := SMA(decimals(1, 2, 3, 4, 5), 3)
	require.Len(t, got, 5)

	assert.False(t, got[0].Valid)
	assert.False(t, got[1].Valid)

	f2, ok := got[2].Float64()
	require.True(t, ok)
	assert.Equal(t, 2.0, f2)

	f3, _ := got[3].Float64()
	assert.Equal(t, 3.0, f3)

	f4, _ := got[4].Float64()
	assert.Equal(t, 4.0, f4)
}

func TestSMA_LengthMatchesInput_FirstPMinusOneMissing(t *testing.T) {
	for _, p := range []int{1, 2, 5, 7} {
		values := decimals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
		got := SMA(values, p)
		require.Len(t, got, len(values))
		for i := 0; i < p-1; i++ {
			assert.False(t, got[i].Valid, "period %d index %d should be missing", p, i)
		}
	}
}

func TestSMA_NonPositivePeriod_AllMissing(t *testing.T) {
	got := SMA(decimals(1, 2, 3), 0)
	for _, v := range got {
		assert.False(t, v.Valid)
	}
}

func TestEMA_SeedIsMeanOfFirstP(t *testing.T) {
	values := decimals(1, 2, 3, 4, 5)
	got := EMA(values, 3)
	require.Len(t, got, 5)

	assert.False(t, got[0].Valid)
	assert.False(t, got[1].Valid)

	seed, ok := got[2].Float64()
	require.True(t, ok)
	assert.InDelta(t, 2.0, seed, 1e-9)
}

func TestEMA_InsufficientHistory_AllMissing(t *testing.T) {
	got := EMA(decimals(1, 2), 5)
	for _, v := range got {
		assert.False(t, v.Valid)
	}
}

func TestRSI_MissingUntilIndexP(t *testing.T) {
	values := decimals(44, 44.5, 44.2, 44.8, 45.1, 45.0, 45.6, 46.2)
	got := RSI(values, 3)
	require.Len(t, got, len(values))
	for i := 0; i <= 3; i++ {
		assert.False(t, got[i].Valid, "index %d should be missing", i)
	}
	assert.True(t, got[4].Valid)
}

func TestRSI_BoundedAndHundredWhenAllGains(t *testing.T) {
	values := decimals(1, 2, 3, 4, 5, 6)
	got := RSI(values, 3)
	for i, v := range got {
		if !v.Valid {
			continue
		}
		f, _ := v.Float64()
		assert.GreaterOrEqual(t, f, 0.0, "index %d", i)
		assert.LessOrEqual(t, f, 100.0, "index %d", i)
	}
	last, ok := got[len(got)-1].Float64()
	require.True(t, ok)
	assert.Equal(t, 100.0, last)
}

func TestVWAP_LiteralScenario(t *testing.T) {
	prices := decimals(10, 20, 30, 40)
	volumes := decimals(1, 1, 1, 1)
	got, err := VWAP(prices, volumes, 2)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.False(t, got[0].Valid)

	f1, _ := got[1].Float64()
	assert.Equal(t, 15.0, f1)
	f2, _ := got[2].Float64()
	assert.Equal(t, 25.0, f2)
	f3, _ := got[3].Float64()
	assert.Equal(t, 35.0, f3)
}

func TestVWAP_LengthMismatch_IsFatal(t *testing.T) {
	_, err := VWAP(decimals(1, 2, 3), decimals(1, 2), 2)
	require.Error(t, err)

	var indErr *IndicatorError
	assert.ErrorAs(t, err, &indErr)
}

func TestVWAP_ZeroTrailingVolume_IsMissing(t *testing.T) {
	prices := decimals(10, 20, 30)
	volumes := decimals(1, 0, 0)
	got, err := VWAP(prices, volumes, 2)
	require.NoError(t, err)
	assert.False(t, got[2].Valid)
}

func TestBuildSeries_PriceFieldSelection(t *testing.T) {
	bars := []Bar{
		{Close: decimal.NewFromInt(10), AdjustedClose: decimal.NewFromInt(9), HasAdjustedClose: true},
		{Close: decimal.NewFromInt(11), AdjustedClose: decimal.NewFromInt(10), HasAdjustedClose: true},
		{Close: decimal.NewFromInt(12), HasAdjustedClose: false},
	}

	closeOnly := PriceSource(bars, PriceFieldClose)
	assert.True(t, closeOnly[0].Equal(decimal.NewFromInt(10)))

	adjusted := PriceSource(bars, PriceFieldAdjustedClose)
	assert.True(t, adjusted[0].Equal(decimal.NewFromInt(9)))
	assert.True(t, adjusted[2].Equal(decimal.NewFromInt(12)), "falls back to close when no adjusted_close on that bar")
}

func TestLatest_InsufficientHistoryStatus(t *testing.T) {
	bars := []Bar{
		{Close: decimal.NewFromInt(1)},
		{Close: decimal.NewFromInt(2)},
	}
	def := Def{ID: "sma5", Kind: TypeMA, Period: 5, MAType: MATypeSMA, PriceField: PriceFieldClose}

	lv, err := Latest(def, bars)
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientHistory, lv.Status)
	assert.Equal(t, 5, lv.LookbackUsed)
}

func TestLatest_OKStatus(t *testing.T) {
	bars := make([]Bar, 0, 6)
	for i := 1; i <= 6; i++ {
		bars = append(bars, Bar{Close: decimal.NewFromInt(int64(i))})
	}
	def := Def{ID: "sma5", Kind: TypeMA, Period: 5, MAType: MATypeSMA, PriceField: PriceFieldClose}

	lv, err := Latest(def, bars)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, lv.Status)
	f, ok := lv.Value.Float64()
	require.True(t, ok)
	assert.Equal(t, 4.0, f)
}

func TestBuildSeries_UnsupportedKind(t *testing.T) {
	_, err := BuildSeries(Def{Kind: "BOLLINGER", Period: 20}, []Bar{{Close: decimal.NewFromInt(1)}})
	require.Error(t, err)
}
