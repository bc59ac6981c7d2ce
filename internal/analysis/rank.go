package analysis

import (
	"fmt"
	"math"
	"sort"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/risk"
)

// Metric names a field of risk.Summary that results can be ranked on.
type Metric string

const (
	MetricTotalReturn Metric = "total_return"
	MetricCAGR        Metric = "cagr"
	MetricVolatility  Metric = "volatility"
	MetricSharpe      Metric = "sharpe"
	MetricSortino     Metric = "sortino"
	MetricMaxDrawdown Metric = "max_drawdown"
	MetricCalmar      Metric = "calmar"
	MetricVaR         Metric = "var"
)

// Metrics lists every rankable metric.
var Metrics = []Metric{MetricTotalReturn, MetricCAGR, MetricVolatility, MetricSharpe, MetricSortino, MetricMaxDrawdown, MetricCalmar, MetricVaR}

func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return MetricSharpe, nil
	}
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Value extracts the metric from a summary.
func (m Metric) Value(s risk.Summary) float64 {
	switch m {
	case MetricTotalReturn:
		return s.TotalReturn
	case MetricCAGR:
		return s.CAGR
	case MetricVolatility:
		return s.Volatility
	case MetricSharpe:
		return s.Sharpe
	case MetricSortino:
		return s.Sortino
	case MetricMaxDrawdown:
		return s.MaxDrawdown
	case MetricCalmar:
		return s.Calmar
	case MetricVaR:
		return s.VaR
	}
	return math.NaN()
}

// LowerIsBetter reports whether smaller values of m rank higher.
func (m Metric) LowerIsBetter() bool {
	return m == MetricVolatility || m == MetricMaxDrawdown || m == MetricVaR
}

type Ranked struct {
	Rank         int          `json:"rank"`
	ResultID     string       `json:"result_id"`
	StrategyName string       `json:"strategy_name"`
	Score        float64      `json:"score"`
	Summary      risk.Summary `json:"summary"`
}

// Rank orders results best first by metric. Ties keep strategy name order.
// Nil results are skipped.
func Rank(results []*backtest.Result, metric Metric, opts risk.Options) []Ranked {
	out := make([]Ranked, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		s := r.Metrics(opts)
		out = append(out, Ranked{ResultID: r.ID, StrategyName: r.StrategyName, Score: metric.Value(s), Summary: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Score, out[j].Score
		if a == b {
			return out[i].StrategyName < out[j].StrategyName
		}
		if metric.LowerIsBetter() {
			return a < b
		}
		return a > b
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// MonteCarlo is the distribution of every metric over a batch of runs.
type MonteCarlo struct {
	Runs    int                     `json:"runs"`
	Skipped int                     `json:"skipped"`
	Metrics map[Metric]Distribution `json:"metrics"`
}

// SummarizeRuns builds the metric distributions of a batch. Nil results,
// windows that produced no run, are counted as skipped.
func SummarizeRuns(results []*backtest.Result, opts risk.Options) MonteCarlo {
	mc := MonteCarlo{Metrics: map[Metric]Distribution{}}
	values := map[Metric][]float64{}
	for _, r := range results {
		if r == nil {
			mc.Skipped++
			continue
		}
		mc.Runs++
		s := r.Metrics(opts)
		for _, m := range Metrics {
			values[m] = append(values[m], m.Value(s))
		}
	}
	for _, m := range Metrics {
		mc.Metrics[m] = Summarize(values[m])
	}
	return mc
}
