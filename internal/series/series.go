// Package series implements the newest-first numeric sequences the
// indicator engine and expression evaluator operate over, with an
// explicitly representable missing value at every slot.
package series

import "github.com/shopspring/decimal"

// Value is a decimal that may be missing. The zero Value is missing,
// matching the "insufficient history" case callers hit most often.
type Value struct {
	Decimal decimal.Decimal
	Valid   bool
}

// Missing is the canonical invalid Value.
var Missing = Value{}

// Of wraps a decimal as a present Value.
func Of(d decimal.Decimal) Value {
	return Value{Decimal: d, Valid: true}
}

// OfFloat wraps a float64 as a present Value.
func OfFloat(f float64) Value {
	return Value{Decimal: decimal.NewFromFloat(f), Valid: true}
}

// Float64 returns the underlying float and whether the value is present.
func (v Value) Float64() (float64, bool) {
	if !v.Valid {
		return 0, false
	}
	f, _ := v.Decimal.Float64()
	return f, true
}

// Series is an ordered sequence of Value indexed by a non-negative
// offset, where 0 is the most recent bar and k is k bars earlier.
type Series struct {
	values []Value
}

// New wraps a slice of Value as a Series, newest-first.
func New(values []Value) Series {
	return Series{values: values}
}

// FromDecimals wraps a slice of decimals as an all-present Series.
func FromDecimals(values []decimal.Decimal) Series {
	out := make([]Value, len(values))
	for i, d := range values {
		out[i] = Of(d)
	}
	return New(out)
}

// Len returns the number of slots in the series.
func (s Series) Len() int {
	return len(s.values)
}

// ValueAt returns the value at offset, or Missing when offset is
// negative, out of range, or the slot itself is missing. Indexing
// never panics.
func (s Series) ValueAt(offset int) Value {
	if offset < 0 || offset >= len(s.values) {
		return Missing
	}
	return s.values[offset]
}

// Values returns the raw backing slice. Callers must not mutate it.
func (s Series) Values() []Value {
	return s.values
}

// Set overwrites the value at offset, used to overlay a live intraday
// price onto the Close series at offset 0. No-op when offset is out of
// range.
func (s Series) Set(offset int, v Value) {
	if offset < 0 || offset >= len(s.values) {
		return
	}
	s.values[offset] = v
}

// Reversed returns a new Series with the slot order reversed, used to
// flip an ascending-by-date bar slice into the newest-first convention
// the context layer presents.
func Reversed(values []Value) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}
