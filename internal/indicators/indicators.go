// Package indicators implements the pure numerical routines that turn
// an ascending sequence of daily bars into time-aligned indicator
// series: moving averages, RSI, and VWAP. Every function accepts an
// ascending (oldest-first) slice and returns a same-length series of
// internal/series.Value, missing wherever there is insufficient
// trailing history.
package indicators

import (
	"fmt"
	"time"

	"github.com/irfndi/neuratrade/internal/series"
	"github.com/shopspring/decimal"
)

// IndicatorError wraps a failure from indicator computation, naming
// which indicator and an optional cause.
type IndicatorError struct {
	Indicator string
	Message   string
	Cause     error
}

func (e *IndicatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Indicator, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Indicator, e.Message)
}

func (e *IndicatorError) Unwrap() error {
	return e.Cause
}

// NewIndicatorError constructs an IndicatorError.
func NewIndicatorError(indicator, message string, cause error) *IndicatorError {
	return &IndicatorError{Indicator: indicator, Message: message, Cause: cause}
}

// Type enumerates the supported indicator kinds.
type Type string

const (
	TypeMA   Type = "MA"
	TypeRSI  Type = "RSI"
	TypeVWAP Type = "VWAP"
)

// MAType selects between simple and exponential moving average when
// Type is TypeMA.
type MAType string

const (
	MATypeSMA MAType = "SMA"
	MATypeEMA MAType = "EMA"
)

// PriceField selects which bar field an indicator is computed from.
type PriceField string

const (
	PriceFieldClose         PriceField = "close"
	PriceFieldAdjustedClose PriceField = "adjusted_close"
)

// Status records whether the latest value of an indicator is usable.
type Status string

const (
	StatusOK                   Status = "OK"
	StatusInsufficientHistory  Status = "INSUFFICIENT_HISTORY"
)

// Bar is one day's OHLCV tuple for one stock, ascending by date when
// fed to the engine.
type Bar struct {
	Date              time.Time
	Open              decimal.Decimal
	High              decimal.Decimal
	Low               decimal.Decimal
	Close             decimal.Decimal
	AdjustedClose     decimal.Decimal
	HasAdjustedClose  bool
	Volume            decimal.Decimal
}

// Def mirrors a persisted IndicatorDef: an indicator's identity,
// kind, and free-form parameters. Period is required; MAType is
// consulted only when Kind == TypeMA.
type Def struct {
	ID         string
	Kind       Type
	Period     int
	MAType     MAType
	PriceField PriceField
	Timeframe  string
	UseEODOnly bool
}

// LatestValue is what a caller persists for an indicator after each
// computation: the newest value (if any), its status, and the
// lookback actually used.
type LatestValue struct {
	Value        series.Value
	Status       Status
	LookbackUsed int
}

// SMA computes the simple moving average over an ascending price
// series. Non-positive periods yield an all-missing series of the same
// length; the first p-1 entries are always missing; uses a running sum
// for O(n) computation.
func SMA(values []decimal.Decimal, period int) []series.Value {
	out := make([]series.Value, len(values))
	if period <= 0 {
		return out
	}

	windowSum := decimal.Zero
	for i, v := range values {
		windowSum = windowSum.Add(v)
		if i >= period {
			windowSum = windowSum.Sub(values[i-period])
		}
		if i+1 < period {
			continue
		}
		out[i] = series.Of(windowSum.Div(decimal.NewFromInt(int64(period))))
	}
	return out
}

// EMA computes the exponential moving average. Missing while i < p-1
// and whenever there are fewer than p values overall; seeded at index
// p-1 with the simple mean of the first p values.
func EMA(values []decimal.Decimal, period int) []series.Value {
	out := make([]series.Value, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	seed := decimal.Zero
	for _, v := range values[:period] {
		seed = seed.Add(v)
	}
	seed = seed.Div(decimal.NewFromInt(int64(period)))
	out[period-1] = series.Of(seed)

	multiplier := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1))
	prev := seed
	for i := period; i < len(values); i++ {
		cur := values[i].Sub(prev).Mul(multiplier).Add(prev)
		out[i] = series.Of(cur)
		prev = cur
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder smoothing.
// Missing for i <= p and whenever there are p or fewer values overall;
// the initial average gain/loss is the mean of the first p
// period-by-period changes, thereafter smoothed by (prev*(p-1)+cur)/p.
// A zero average loss yields RSI 100.
func RSI(values []decimal.Decimal, period int) []series.Value {
	out := make([]series.Value, len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	periodDec := decimal.NewFromInt(int64(period))
	gainSum := decimal.Zero
	lossSum := decimal.Zero
	for i := 1; i <= period; i++ {
		change := values[i].Sub(values[i-1])
		gainSum = gainSum.Add(decimal.Max(change, decimal.Zero))
		lossSum = lossSum.Add(decimal.Max(change.Neg(), decimal.Zero))
	}
	avgGain := gainSum.Div(periodDec)
	avgLoss := lossSum.Div(periodDec)

	periodMinusOne := decimal.NewFromInt(int64(period - 1))
	for i := period + 1; i < len(values); i++ {
		change := values[i].Sub(values[i-1])
		gain := decimal.Max(change, decimal.Zero)
		loss := decimal.Max(change.Neg(), decimal.Zero)
		avgGain = avgGain.Mul(periodMinusOne).Add(gain).Div(periodDec)
		avgLoss = avgLoss.Mul(periodMinusOne).Add(loss).Div(periodDec)
		out[i] = series.Of(rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		return decimal.NewFromInt(100)
	}
	rs := avgGain.Div(avgLoss)
	return decimal.NewFromInt(100).Sub(decimal.NewFromInt(100).Div(decimal.NewFromInt(1).Add(rs)))
}

// VWAP computes the volume weighted average price over a trailing
// window of p bars. Prices and volumes must be the same length, else
// this is a synchronous error (unlike the other engine functions,
// which return all-missing on bad input — an intentional asymmetry,
// see spec §9). Missing while i < p-1, and wherever the trailing
// volume sums to zero.
func VWAP(prices, volumes []decimal.Decimal, period int) ([]series.Value, error) {
	if len(prices) != len(volumes) {
		return nil, NewIndicatorError("VWAP", "prices and volumes length mismatch", nil)
	}

	out := make([]series.Value, len(prices))
	if period <= 0 {
		return out, nil
	}

	for i := range prices {
		if i+1 < period {
			continue
		}
		start := i + 1 - period
		weightedSum := decimal.Zero
		totalVolume := decimal.Zero
		for j := start; j <= i; j++ {
			weightedSum = weightedSum.Add(prices[j].Mul(volumes[j]))
			totalVolume = totalVolume.Add(volumes[j])
		}
		if totalVolume.IsZero() {
			continue
		}
		out[i] = series.Of(weightedSum.Div(totalVolume))
	}
	return out, nil
}

// PriceSource selects the per-bar price used by a MA/RSI indicator:
// adjusted_close when requested and present on that bar, else close.
func PriceSource(bars []Bar, field PriceField) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		if field == PriceFieldAdjustedClose && b.HasAdjustedClose {
			out[i] = b.AdjustedClose
		} else {
			out[i] = b.Close
		}
	}
	return out
}

// BuildSeries computes the ascending (oldest-first) value series for
// an indicator definition against an ascending bar slice.
func BuildSeries(def Def, bars []Bar) ([]series.Value, error) {
	switch def.Kind {
	case TypeMA:
		closes := PriceSource(bars, def.PriceField)
		if def.MAType == MATypeEMA {
			return EMA(closes, def.Period), nil
		}
		return SMA(closes, def.Period), nil
	case TypeRSI:
		closes := PriceSource(bars, def.PriceField)
		return RSI(closes, def.Period), nil
	case TypeVWAP:
		closes := make([]decimal.Decimal, len(bars))
		volumes := make([]decimal.Decimal, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
			volumes[i] = b.Volume
		}
		return VWAP(closes, volumes, def.Period)
	default:
		return nil, NewIndicatorError(string(def.Kind), "unsupported indicator type", nil)
	}
}

// Latest computes an indicator's latest-bar value and status, for
// callers that persist one row per indicator per stock.
func Latest(def Def, bars []Bar) (LatestValue, error) {
	values, err := BuildSeries(def, bars)
	if err != nil {
		return LatestValue{}, err
	}
	if len(values) == 0 {
		return LatestValue{Status: StatusInsufficientHistory, LookbackUsed: def.Period}, nil
	}
	last := values[len(values)-1]
	status := StatusOK
	if !last.Valid {
		status = StatusInsufficientHistory
	}
	return LatestValue{Value: last, Status: status, LookbackUsed: def.Period}, nil
}
