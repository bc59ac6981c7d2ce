// Package analysis aggregates many backtest results: metric distributions for
// Monte Carlo studies, rankings, and descriptive statistics of price series.
package analysis

import (
	"math"
	"sort"
	"time"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"
)

// Distribution summarises one metric across many runs.
type Distribution struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	P05   float64 `json:"p05"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P95   float64 `json:"p95"`
	// PositivePct is the share of values above zero, in percent.
	PositivePct float64 `json:"positive_pct"`
}

// Summarize ignores NaN and infinite values.
func Summarize(values []float64) Distribution {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		vals = append(vals, v)
	}
	d := Distribution{Count: len(vals)}
	if len(vals) == 0 {
		return d
	}
	sort.Float64s(vals)
	positive := 0
	for _, v := range vals {
		if v > 0 {
			positive++
		}
	}
	d.Min = vals[0]
	d.Max = vals[len(vals)-1]
	d.Mean = risk.ArithmeticAverage(vals)
	d.Std = risk.SampleStandardDeviation(vals)
	d.P05 = percentileSorted(vals, 0.05)
	d.P25 = percentileSorted(vals, 0.25)
	d.P50 = percentileSorted(vals, 0.50)
	d.P75 = percentileSorted(vals, 0.75)
	d.P95 = percentileSorted(vals, 0.95)
	d.PositivePct = float64(positive) / float64(len(vals)) * 100
	return d
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SeriesStats is a descriptive summary of one price series.
type SeriesStats struct {
	Symbol string    `json:"symbol"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Count  int       `json:"count"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	TotalReturnPct float64 `json:"total_return_pct"`
	CAGRPct        float64 `json:"cagr_pct"`
	VolatilityPct  float64 `json:"volatility_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

func ComputeSeriesStats(s *model.PriceSeries, adjusted bool) SeriesStats {
	st := SeriesStats{}
	if s == nil || s.Len() == 0 {
		return st
	}
	st.Symbol = s.Symbol
	first, _ := s.First()
	last, _ := s.Last()
	st.Start, st.End = first.Date, last.Date
	st.Count = s.Len()

	closes := s.Closes(adjusted)
	d := Summarize(closes)
	st.Min, st.Max, st.Mean = d.Min, d.Max, d.Mean
	st.P05, st.P95 = d.P05, d.P95

	years := st.End.Sub(st.Start).Hours() / 24 / 365.25
	st.TotalReturnPct = risk.TotalReturn(closes[0], closes[len(closes)-1])
	st.CAGRPct = risk.CAGR(closes[0], closes[len(closes)-1], years)
	st.VolatilityPct = risk.Volatility(risk.Returns(closes), risk.TradingDaysPerYear) * 100
	st.MaxDrawdownPct = risk.MaxDrawdown(closes)
	return st
}
