package exprlang

import (
	"sort"

	"github.com/irfndi/neuratrade/internal/indicators"
	"github.com/irfndi/neuratrade/internal/series"
	"github.com/shopspring/decimal"
)

// BuildContext assembles the standard newest-first context for a rule
// evaluation: Close/Open/High/Low/Volume, their price.* aliases, and
// ind.<id> for every indicator definition. bars must be ascending by
// date; currentPrice, when non-nil, overwrites Close/price.close at
// offset 0 (adjusted_close is left untouched).
func BuildContext(bars []indicators.Bar, defs []indicators.Def, currentPrice *decimal.Decimal) (Context, error) {
	if len(bars) == 0 {
		return nil, NewFatalError("no bars available")
	}

	sorted := make([]indicators.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	n := len(sorted)
	closeVals := make([]series.Value, n)
	adjustedVals := make([]series.Value, n)
	openVals := make([]series.Value, n)
	highVals := make([]series.Value, n)
	lowVals := make([]series.Value, n)
	volumeVals := make([]series.Value, n)

	for i, b := range sorted {
		// newest-first: descending index j = n-1-i
		j := n - 1 - i
		closeVals[j] = series.Of(b.Close)
		if b.HasAdjustedClose {
			adjustedVals[j] = series.Of(b.AdjustedClose)
		} else {
			adjustedVals[j] = series.Of(b.Close)
		}
		openVals[j] = series.Of(b.Open)
		highVals[j] = series.Of(b.High)
		lowVals[j] = series.Of(b.Low)
		volumeVals[j] = series.Of(b.Volume)
	}

	closeSeries := series.New(closeVals)
	ctx := Context{
		"Close":                SeriesValue(closeSeries),
		"Open":                 SeriesValue(series.New(openVals)),
		"High":                 SeriesValue(series.New(highVals)),
		"Low":                  SeriesValue(series.New(lowVals)),
		"Volume":               SeriesValue(series.New(volumeVals)),
		"price.close":          SeriesValue(closeSeries),
		"price.adjusted_close": SeriesValue(series.New(adjustedVals)),
		"price.open":           SeriesValue(series.New(openVals)),
		"price.high":           SeriesValue(series.New(highVals)),
		"price.low":            SeriesValue(series.New(lowVals)),
		"volume":               SeriesValue(series.New(volumeVals)),
	}

	if currentPrice != nil && closeSeries.Len() > 0 {
		closeSeries.Set(0, series.Of(*currentPrice))
	}

	for _, def := range defs {
		values, err := indicators.BuildSeries(def, sorted)
		if err != nil {
			return nil, err
		}
		ctx["ind."+def.ID] = SeriesValue(series.New(series.Reversed(values)))
	}

	return ctx, nil
}

// BuildFunctions assembles the standard function table: SMA/EMA/RSI/
// VWAP computed fresh over bars, plus highest/lowest/change/diff.
// bars must be ascending by date.
func BuildFunctions(bars []indicators.Bar) FunctionTable {
	sorted := make([]indicators.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	closes := make([]decimal.Decimal, len(sorted))
	volumes := make([]decimal.Decimal, len(sorted))
	for i, b := range sorted {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	periodFrom := func(args []Value) (int, bool) {
		if len(args) != 1 {
			return 0, false
		}
		d, ok := args[0].AsNumber()
		if !ok {
			return 0, false
		}
		return int(d.IntPart()), true
	}

	return FunctionTable{
		"SMA": func(args []Value) (Value, error) {
			p, ok := periodFrom(args)
			if !ok {
				return Missing, NewFatalError("SMA requires a numeric period argument")
			}
			return SeriesValue(series.New(series.Reversed(indicators.SMA(closes, p)))), nil
		},
		"EMA": func(args []Value) (Value, error) {
			p, ok := periodFrom(args)
			if !ok {
				return Missing, NewFatalError("EMA requires a numeric period argument")
			}
			return SeriesValue(series.New(series.Reversed(indicators.EMA(closes, p)))), nil
		},
		"RSI": func(args []Value) (Value, error) {
			p, ok := periodFrom(args)
			if !ok {
				return Missing, NewFatalError("RSI requires a numeric period argument")
			}
			return SeriesValue(series.New(series.Reversed(indicators.RSI(closes, p)))), nil
		},
		"VWAP": func(args []Value) (Value, error) {
			p, ok := periodFrom(args)
			if !ok {
				return Missing, NewFatalError("VWAP requires a numeric period argument")
			}
			values, err := indicators.VWAP(closes, volumes, p)
			if err != nil {
				return Missing, err
			}
			return SeriesValue(series.New(series.Reversed(values))), nil
		},
		"highest": func(args []Value) (Value, error) {
			if len(args) != 2 || args[0].Kind != ValueSeries {
				return Missing, NewFatalError("highest requires (series, period)")
			}
			p, ok := args[1].AsNumber()
			if !ok {
				return Missing, NewFatalError("highest requires a numeric period argument")
			}
			return extremum(args[0].Series, int(p.IntPart()), true), nil
		},
		"lowest": func(args []Value) (Value, error) {
			if len(args) != 2 || args[0].Kind != ValueSeries {
				return Missing, NewFatalError("lowest requires (series, period)")
			}
			p, ok := args[1].AsNumber()
			if !ok {
				return Missing, NewFatalError("lowest requires a numeric period argument")
			}
			return extremum(args[0].Series, int(p.IntPart()), false), nil
		},
		"change": func(args []Value) (Value, error) {
			if len(args) != 1 || args[0].Kind != ValueSeries {
				return Missing, nil
			}
			cur := args[0].Series.ValueAt(0)
			prev := args[0].Series.ValueAt(1)
			if !cur.Valid || !prev.Valid {
				return Missing, nil
			}
			return NumberValue(cur.Decimal.Sub(prev.Decimal)), nil
		},
		"diff": func(args []Value) (Value, error) {
			if len(args) != 2 {
				return Missing, NewFatalError("diff requires two arguments")
			}
			a := scalarAtZero(args[0])
			b := scalarAtZero(args[1])
			if a.IsMissing() || b.IsMissing() {
				return Missing, nil
			}
			an, _ := a.AsNumber()
			bn, _ := b.AsNumber()
			return NumberValue(an.Sub(bn)), nil
		},
	}
}

func scalarAtZero(v Value) Value {
	if v.Kind == ValueSeries {
		return FromSeriesValue(v.Series.ValueAt(0))
	}
	return v
}

func extremum(s series.Series, period int, wantMax bool) Value {
	if period <= 0 {
		return Missing
	}
	found := false
	var best decimal.Decimal
	limit := period
	if limit > s.Len() {
		limit = s.Len()
	}
	for i := 0; i < limit; i++ {
		v := s.ValueAt(i)
		if !v.Valid {
			continue
		}
		if !found {
			best = v.Decimal
			found = true
			continue
		}
		if wantMax && v.Decimal.GreaterThan(best) {
			best = v.Decimal
		}
		if !wantMax && v.Decimal.LessThan(best) {
			best = v.Decimal
		}
	}
	if !found {
		return Missing
	}
	return NumberValue(best)
}
