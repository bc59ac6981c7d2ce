// Package report renders backtest results as PNG charts.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/risk"

	"github.com/vicanso/go-charts/v2"
)

var ErrNoData = errors.New("no equity points to chart")

const (
	width  = 1000
	height = 600
)

// EquityChart plots the equity curve of r with its headline statistics in the
// subtitle.
func EquityChart(r *backtest.Result) ([]byte, error) {
	if r == nil || len(r.EquityCurve) == 0 {
		return nil, ErrNoData
	}
	values := r.Values()
	m := r.Metrics(risk.Options{})
	title := fmt.Sprintf("%s (%s to %s)", r.StrategyName, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	subtitle := fmt.Sprintf("Return: %.2f%% | CAGR: %.2f%% | Sharpe: %.2f | MaxDD: %.2f%%",
		m.TotalReturn, m.CAGR, m.Sharpe, m.MaxDrawdown)
	yMin, yMax := bounds(values)

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels(r.Dates()),
			SplitNumber: splitNumber(len(values)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// CompareChart plots several results on one axis, each rebased to 100 at its
// first point. The x axis is the union of all dates; a curve holds its last
// value over dates it does not cover.
func CompareChart(results map[string]*backtest.Result) ([]byte, error) {
	names := make([]string, 0, len(results))
	for name, r := range results {
		if r != nil && len(r.EquityCurve) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoData
	}
	sort.Strings(names)

	axis := unionDates(results, names)
	values := make([][]float64, len(names))
	for i, name := range names {
		values[i] = rebased(results[name], axis)
	}
	var all []float64
	for _, v := range values {
		all = append(all, v...)
	}
	yMin, yMax := bounds(all)

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc("Strategy comparison", "growth of 100"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels(axis),
			SplitNumber: splitNumber(len(axis)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

func unionDates(results map[string]*backtest.Result, names []string) []time.Time {
	seen := map[int64]time.Time{}
	for _, name := range names {
		for _, p := range results[name].EquityCurve {
			seen[p.Date.Unix()] = p.Date
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// rebased maps r onto axis, scaled so the first point is 100.
func rebased(r *backtest.Result, axis []time.Time) []float64 {
	raw := r.Values()
	base := raw[0]
	if base <= 0 {
		base = 1
	}
	out := make([]float64, len(axis))
	j := 0
	last := 100.0
	for i, d := range axis {
		for j < len(r.EquityCurve) && !r.EquityCurve[j].Date.After(d) {
			last = raw[j] / base * 100
			j++
		}
		out[i] = last
	}
	return out
}

func labels(dates []time.Time) []string {
	layout := "Jan 02"
	if len(dates) > 1 && dates[len(dates)-1].Sub(dates[0]) > 180*24*time.Hour {
		layout = "Jan '06"
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(layout)
	}
	return out
}

// bounds pads the value range by 5% so flat curves still get an axis.
func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.05, 1)
	}
	return lo - pad, hi + pad
}

func splitNumber(n int) int {
	if n > 30 {
		return 6
	}
	if s := n / 3; s >= 3 {
		return s
	}
	return 3
}
