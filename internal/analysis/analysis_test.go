package analysis

import (
	"math"
	"testing"
	"time"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func result(name string, values ...int64) *backtest.Result {
	pts := make([]backtest.EquityPoint, len(values))
	for i, v := range values {
		pts[i] = backtest.EquityPoint{Date: start.AddDate(0, 0, i), TotalValue: decimal.NewFromInt(v)}
	}
	return backtest.NewResult(name, start, pts[len(pts)-1].Date, decimal.NewFromInt(values[0]), nil, pts, nil)
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	d := Summarize([]float64{5, 1, 3, 2, 4, math.NaN(), math.Inf(1), -1})
	assert.Equal(t, 6, d.Count)
	assert.Equal(t, -1.0, d.Min)
	assert.Equal(t, 5.0, d.Max)
	assert.InDelta(t, 14.0/6, d.Mean, 1e-12)
	assert.InDelta(t, 2.5, d.P50, 1e-12)
	assert.InDelta(t, 1.25, d.P25, 1e-12)
	assert.InDelta(t, 5.0/6*100, d.PositivePct, 1e-9)

	assert.Equal(t, Distribution{}, Summarize(nil))
}

func TestPercentileSorted(t *testing.T) {
	t.Parallel()
	vals := []float64{0, 10, 20, 30, 40}
	assert.Equal(t, 0.0, percentileSorted(vals, 0))
	assert.Equal(t, 40.0, percentileSorted(vals, 1))
	assert.Equal(t, 20.0, percentileSorted(vals, 0.5))
	assert.InDelta(t, 2.0, percentileSorted(vals, 0.05), 1e-12)
	assert.Equal(t, 0.0, percentileSorted(nil, 0.5))
}

func TestRank(t *testing.T) {
	t.Parallel()
	steady := result("steady", 100, 101, 102, 103)
	wild := result("wild", 100, 130, 90, 110)
	loser := result("loser", 100, 99, 98, 97)
	results := []*backtest.Result{loser, nil, wild, steady}

	byReturn := Rank(results, MetricTotalReturn, risk.Options{})
	require.Len(t, byReturn, 3)
	assert.Equal(t, "wild", byReturn[0].StrategyName)
	assert.Equal(t, 1, byReturn[0].Rank)
	assert.Equal(t, "steady", byReturn[1].StrategyName)
	assert.Equal(t, "loser", byReturn[2].StrategyName)
	assert.Equal(t, wild.ID, byReturn[0].ResultID)

	byDrawdown := Rank(results, MetricMaxDrawdown, risk.Options{})
	assert.Equal(t, "steady", byDrawdown[0].StrategyName)
	assert.Equal(t, 0.0, byDrawdown[0].Score)
	assert.Equal(t, "wild", byDrawdown[2].StrategyName)
}

func TestParseMetric(t *testing.T) {
	t.Parallel()
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricSharpe, m)
	m, err = ParseMetric("calmar")
	require.NoError(t, err)
	assert.Equal(t, MetricCalmar, m)
	_, err = ParseMetric("alpha")
	assert.Error(t, err)
	assert.True(t, math.IsNaN(Metric("alpha").Value(risk.Summary{})))
}

func TestSummarizeRuns(t *testing.T) {
	t.Parallel()
	mc := SummarizeRuns([]*backtest.Result{
		result("a", 100, 110),
		nil,
		result("b", 100, 90),
		result("c", 100, 120),
	}, risk.Options{})
	assert.Equal(t, 3, mc.Runs)
	assert.Equal(t, 1, mc.Skipped)
	tr := mc.Metrics[MetricTotalReturn]
	assert.Equal(t, 3, tr.Count)
	assert.InDelta(t, 10.0, tr.P50, 1e-9)
	assert.InDelta(t, -10.0, tr.Min, 1e-9)
	assert.InDelta(t, 200.0/3, tr.PositivePct, 1e-9)
}

func TestComputeSeriesStats(t *testing.T) {
	t.Parallel()
	var pts []model.PricePoint
	for i, c := range []int64{100, 120, 90, 110} {
		v := decimal.NewFromInt(c)
		pts = append(pts, model.PricePoint{Date: start.AddDate(0, 0, i), Close: v})
	}
	s, err := model.NewPriceSeries("X", pts)
	require.NoError(t, err)

	st := ComputeSeriesStats(s, false)
	assert.Equal(t, "X", st.Symbol)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 90.0, st.Min)
	assert.Equal(t, 120.0, st.Max)
	assert.InDelta(t, 10.0, st.TotalReturnPct, 1e-9)
	assert.InDelta(t, 25.0, st.MaxDrawdownPct, 1e-9)
	assert.Greater(t, st.VolatilityPct, 0.0)
	assert.Equal(t, start.AddDate(0, 0, 3), st.End)

	assert.Equal(t, SeriesStats{}, ComputeSeriesStats(nil, false))
}
