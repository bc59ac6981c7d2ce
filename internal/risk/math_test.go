package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharpeRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, SharpeRatio([]float64{}, 0.02, TradingDaysPerYear), "empty returns are not an error")
	assert.Zero(t, SharpeRatio([]float64{0.01}, 0.02, TradingDaysPerYear))
	assert.Zero(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, TradingDaysPerYear), "zero volatility")

	rets := []float64{0.01, -0.005, 0.02, 0.003}
	mean := ArithmeticAverage(rets) * 252
	vol := SampleStandardDeviation(rets) * math.Sqrt(252)
	assert.InDelta(t, (mean-0.02)/vol, SharpeRatio(rets, 0.02, 252), 1e-12)

	// unannualised
	assert.InDelta(t, ArithmeticAverage(rets)/SampleStandardDeviation(rets), SharpeRatio(rets, 0, 0), 1e-12)
}

func TestSortinoRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, SortinoRatio(nil, 0, 252))
	assert.True(t, math.IsInf(SortinoRatio([]float64{0.01, 0.02}, 0, 252), 1), "no losses is unbounded")
	assert.Zero(t, SortinoRatio([]float64{0.01, -0.02}, 0, 252), "single loss has zero deviation")
	assert.Zero(t, SortinoRatio([]float64{0.03, -0.02, -0.02}, 0, 252), "identical losses have zero deviation")

	rets := []float64{0.02, -0.01, 0.015, -0.03, 0.01}
	down := SampleStandardDeviation([]float64{-0.01, -0.03}) * math.Sqrt(252)
	assert.InDelta(t, ArithmeticAverage(rets)*252/down, SortinoRatio(rets, 0, 252), 1e-12)
}

func TestVolatility(t *testing.T) {
	t.Parallel()
	rets := []float64{0.01, 0.03}
	sd := SampleStandardDeviation(rets)
	assert.InDelta(t, math.Sqrt(0.0002), sd, 1e-15)
	assert.InDelta(t, sd, Volatility(rets, 0), 1e-15)
	assert.InDelta(t, sd*math.Sqrt(252), Volatility(rets, 252), 1e-15)
	assert.Zero(t, Volatility(nil, 252))
}

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"flat", []float64{5, 5, 5}, 0},
		{"rising", []float64{1, 2, 3, 4}, 0},
		{"dip", []float64{100, 80, 120, 90}, 25},
		{"wipeout", []float64{100, 0}, 100},
		{"zero peak", []float64{0, 0, 0}, 0},
	} {
		got := MaxDrawdown(tc.values)
		assert.InDelta(t, tc.want, got, 1e-12, tc.name)
		assert.GreaterOrEqual(t, got, 0.0, tc.name)
		assert.LessOrEqual(t, got, 100.0, tc.name)
	}
	assert.Equal(t, 2, MaxDrawdownDuration([]float64{10, 9, 8, 11, 10, 12}))
}

func TestVaRAndCVaR(t *testing.T) {
	t.Parallel()
	assert.Zero(t, VaR(nil, 0.95))
	assert.Zero(t, CVaR(nil, 0.95))

	rets := make([]float64, 20)
	for i := range rets {
		rets[i] = float64(i-10) / 100 // -0.10 .. 0.09
	}
	// index int(0.05*20) = 1 -> -0.09
	assert.InDelta(t, 0.09, VaR(rets, 0.95), 1e-12)
	assert.InDelta(t, 0.095, CVaR(rets, 0.95), 1e-12)
	// confidence 1 clamps to the worst return
	assert.InDelta(t, 0.10, VaR(rets, 1), 1e-12)
	// confidence 0 clamps to the last index
	assert.InDelta(t, 0.09, VaR(rets, 0), 1e-12)

	// (1-0.9)*10 is just below 1 in floating point and must still pick index 1.
	ten := []float64{-0.05, -0.04, -0.03, -0.02, -0.01, 0.01, 0.02, 0.03, 0.04, 0.05}
	assert.InDelta(t, 0.04, VaR(ten, 0.9), 1e-12)
	assert.InDelta(t, 0.045, CVaR(ten, 0.9), 1e-12)
}

func TestBeta(t *testing.T) {
	t.Parallel()
	market := []float64{0.01, -0.02, 0.015, 0.005}
	asset := make([]float64, len(market))
	for i := range market {
		asset[i] = 2 * market[i]
	}
	assert.InDelta(t, 2, Beta(asset, market), 1e-12)
	assert.Zero(t, Beta(asset, market[:3]), "length mismatch")
	assert.Zero(t, Beta([]float64{0.1}, []float64{0.2}))
	assert.Zero(t, Beta(asset, []float64{0.01, 0.01, 0.01, 0.01}), "flat market")
}

func TestInformationRatio(t *testing.T) {
	t.Parallel()
	p := []float64{0.02, 0.01, 0.03}
	b := []float64{0.01, 0.01, 0.01}
	active := []float64{0.01, 0, 0.02}
	assert.InDelta(t, ArithmeticAverage(active)/SampleStandardDeviation(active), InformationRatio(p, b), 1e-12)
	assert.Zero(t, InformationRatio(p, p), "identical series")
	assert.Zero(t, InformationRatio(p, b[:2]))
}

func TestReturnsAndGrowth(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Returns([]float64{1}))
	rets := Returns([]float64{100, 110, 99, 0, 5})
	assert.Len(t, rets, 3, "periods from a zero value are skipped")
	assert.InDelta(t, 0.1, rets[0], 1e-12)
	assert.InDelta(t, -0.1, rets[1], 1e-12)

	assert.InDelta(t, 21, TotalReturn(100, 121), 1e-12)
	assert.Zero(t, TotalReturn(0, 121))
	assert.InDelta(t, 10, CAGR(100, 121, 2), 1e-9)
	assert.Zero(t, CAGR(100, 121, 0))
	assert.Equal(t, -100.0, CAGR(100, 0, 1))
	assert.Equal(t, MaxCAGR, CAGR(1, 10, 1.0/365), "overflow is capped")
	assert.False(t, math.IsInf(CAGR(1, 1e6, 1e-6), 0))
	assert.InDelta(t, 0.5, CalmarRatio(10, 20), 1e-12)
	assert.Zero(t, CalmarRatio(10, 0))
}

func TestNoNaNFromDegenerateInput(t *testing.T) {
	t.Parallel()
	inputs := [][]float64{nil, {}, {0}, {0, 0}, {1, 1, 1}, {-1, -2}}
	for _, in := range inputs {
		for _, v := range []float64{
			SharpeRatio(in, 0.02, 252),
			Volatility(in, 252),
			MaxDrawdown(in),
			VaR(in, 0.95),
			CVaR(in, 0.95),
			Beta(in, in),
			InformationRatio(in, in),
		} {
			assert.False(t, math.IsNaN(v))
		}
		assert.False(t, math.IsNaN(SortinoRatio(in, 0.02, 252)))
	}
}
