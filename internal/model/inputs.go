package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var ErrDuplicateSymbol = errors.New("duplicate symbol")

// DateAxis selects how the simulation date axis is derived from several series.
type DateAxis string

const (
	// AxisIntersection keeps only dates present in every series.
	AxisIntersection DateAxis = "intersection"
	// AxisUnion keeps every date present in any series; prices are forward-filled.
	AxisUnion DateAxis = "union"
)

func ParseDateAxis(s string) (DateAxis, error) {
	switch DateAxis(s) {
	case "", AxisIntersection:
		return AxisIntersection, nil
	case AxisUnion:
		return AxisUnion, nil
	default:
		return "", fmt.Errorf("unknown date axis %q", s)
	}
}

// PriceData is the set of price series a backtest consumes.
// It is read-only after construction and safe to share between concurrent runs.
type PriceData struct {
	series  map[string]*PriceSeries
	symbols []string
}

func NewPriceData(series ...*PriceSeries) (*PriceData, error) {
	d := &PriceData{series: make(map[string]*PriceSeries, len(series))}
	for _, s := range series {
		if s == nil {
			continue
		}
		if _, ok := d.series[s.Symbol]; ok {
			return nil, fmt.Errorf("%s: %w", s.Symbol, ErrDuplicateSymbol)
		}
		d.series[s.Symbol] = s
		d.symbols = append(d.symbols, s.Symbol)
	}
	sort.Strings(d.symbols)
	return d, nil
}

// Symbols returns all symbols in lexicographic order.
func (d *PriceData) Symbols() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.symbols))
	copy(out, d.symbols)
	return out
}

func (d *PriceData) Series(symbol string) (*PriceSeries, bool) {
	if d == nil {
		return nil, false
	}
	s, ok := d.series[symbol]
	return s, ok
}

// Dates returns the ascending date axis restricted to [start, end].
// Zero start or end leaves that side unbounded.
func (d *PriceData) Dates(axis DateAxis, start, end time.Time) []time.Time {
	if d == nil || len(d.symbols) == 0 {
		return nil
	}
	// keyed by unix seconds so equal instants in different locations collapse
	counts := map[int64]int{}
	dates := map[int64]time.Time{}
	for _, sym := range d.symbols {
		for _, p := range d.series[sym].points {
			k := p.Date.Unix()
			counts[k]++
			if _, ok := dates[k]; !ok {
				dates[k] = p.Date
			}
		}
	}
	need := 1
	if axis != AxisUnion {
		need = len(d.symbols)
	}
	out := make([]time.Time, 0, len(counts))
	for k, n := range counts {
		if n < need {
			continue
		}
		dt := dates[k]
		if !start.IsZero() && dt.Before(start) {
			continue
		}
		if !end.IsZero() && dt.After(end) {
			continue
		}
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// PricesOn returns the latest available price per symbol at or before date.
// Symbols without a strictly positive price are omitted.
func (d *PriceData) PricesOn(date time.Time, adjusted bool) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	if d == nil {
		return out
	}
	for _, sym := range d.symbols {
		px, ok := d.series[sym].PriceOn(date, adjusted)
		if !ok || !px.IsPositive() {
			continue
		}
		out[sym] = px
	}
	return out
}

// HistoryUntil returns every series truncated at date.
func (d *PriceData) HistoryUntil(date time.Time) map[string]*PriceSeries {
	if d == nil {
		return map[string]*PriceSeries{}
	}
	out := make(map[string]*PriceSeries, len(d.symbols))
	for _, sym := range d.symbols {
		out[sym] = d.series[sym].Until(date)
	}
	return out
}

// Between restricts every series to [start, end].
func (d *PriceData) Between(start, end time.Time) *PriceData {
	out := &PriceData{series: make(map[string]*PriceSeries, len(d.symbols))}
	for _, sym := range d.symbols {
		out.series[sym] = d.series[sym].Between(start, end)
		out.symbols = append(out.symbols, sym)
	}
	return out
}

// Window is an inclusive date range a run is restricted to.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}
