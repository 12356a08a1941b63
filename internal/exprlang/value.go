package exprlang

import (
	"github.com/irfndi/neuratrade/internal/series"
	"github.com/shopspring/decimal"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueMissing ValueKind = iota
	ValueNumber
	ValueBool
	ValueSeries
)

// Value is the tagged sum the evaluator and function table operate
// over: a number, a boolean, a series, or missing. This keeps
// identifier/function resolution distinct from the scalar-vs-series
// projection the evaluator performs at each offset.
type Value struct {
	Kind   ValueKind
	Number decimal.Decimal
	Bool   bool
	Series series.Series
}

// Missing is the canonical absent Value.
var Missing = Value{Kind: ValueMissing}

// NumberValue wraps a decimal as a present scalar Value.
func NumberValue(d decimal.Decimal) Value {
	return Value{Kind: ValueNumber, Number: d}
}

// BoolValue wraps a boolean as a Value.
func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

// SeriesValue wraps a series as a Value.
func SeriesValue(s series.Series) Value {
	return Value{Kind: ValueSeries, Series: s}
}

// FromSeriesValue lifts a series.Value (itself possibly missing) into
// a scalar Value.
func FromSeriesValue(v series.Value) Value {
	if !v.Valid {
		return Missing
	}
	return NumberValue(v.Decimal)
}

// IsMissing reports whether v carries no usable value.
func (v Value) IsMissing() bool {
	return v.Kind == ValueMissing
}

// AsNumber returns v's decimal and whether it is a present number. A
// bool coerces to 1/0, mirroring Python's bool-is-an-int: a chained
// comparison's left operand is often the bool result of the previous
// comparison (a < b < c), and it must compare numerically against the
// next operand rather than be treated as missing.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Number, true
	case ValueBool:
		if v.Bool {
			return decimal.New(1, 0), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// AsBool coerces v the way AND/OR/NOT do: missing and the zero number
// are falsy, any present series with a non-zero offset-0 value is
// truthy, booleans pass through.
func (v Value) AsBool() bool {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueNumber:
		return !v.Number.IsZero()
	case ValueSeries:
		at0 := v.Series.ValueAt(0)
		return at0.Valid && !at0.Decimal.IsZero()
	default:
		return false
	}
}

// resolve projects a raw Value at offset: a series collapses to its
// value_at(offset) reading unless preserveSeries requests the raw
// series back (function arg, index receiver, crossover operand).
func resolve(v Value, offset int, preserveSeries bool) Value {
	if v.Kind != ValueSeries {
		return v
	}
	if preserveSeries {
		return v
	}
	return FromSeriesValue(v.Series.ValueAt(offset))
}
