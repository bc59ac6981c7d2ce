// Package risk derives performance statistics from an equity curve.
//
// All functions are pure and deterministic. Any ratio whose denominator can be
// zero returns a defined sentinel (0 or +Inf) instead of NaN or a panic, so
// callers aggregating many runs never special-case division failures.
package risk

import (
	"math"
	"sort"
)

// TradingDaysPerYear is the default annualisation factor for daily returns.
const TradingDaysPerYear = 252

// ArithmeticAverage divides the sum of all values by their count.
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for x := range values {
		sum += values[x]
	}
	return sum / float64(len(values))
}

// SampleStandardDeviation uses the n-1 denominator.
func SampleStandardDeviation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(values)
	var combined float64
	for i := range values {
		combined += math.Pow(values[i]-mean, 2)
	}
	return math.Sqrt(combined / float64(len(values)-1))
}

// sampleCovariance uses the n-1 denominator; a and b must have equal length.
func sampleCovariance(a, b []float64) float64 {
	if len(a) <= 1 || len(a) != len(b) {
		return 0
	}
	ma, mb := ArithmeticAverage(a), ArithmeticAverage(b)
	var sum float64
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a)-1)
}

// Returns converts a value series into simple period returns.
// Periods starting from a non-positive value are skipped.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// Volatility is the sample standard deviation of returns, annualised by
// sqrt(periodsPerYear) when periodsPerYear is positive.
func Volatility(returns []float64, periodsPerYear float64) float64 {
	sd := SampleStandardDeviation(returns)
	if periodsPerYear > 0 {
		sd *= math.Sqrt(periodsPerYear)
	}
	return sd
}

// SharpeRatio is (annualised mean return - riskFreeRate) / annualised volatility.
// It returns 0 with fewer than two observations or zero volatility.
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	vol := Volatility(returns, periodsPerYear)
	if vol == 0 {
		return 0
	}
	return (annualisedMean(returns, periodsPerYear) - riskFreeRate) / vol
}

// SortinoRatio replaces the volatility of SharpeRatio with the annualised
// standard deviation of negative returns only. It returns +Inf when no return
// is negative and 0 when the downside deviation is zero.
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return math.Inf(1)
	}
	dd := Volatility(downside, periodsPerYear)
	if dd == 0 {
		return 0
	}
	return (annualisedMean(returns, periodsPerYear) - riskFreeRate) / dd
}

func annualisedMean(returns []float64, periodsPerYear float64) float64 {
	m := ArithmeticAverage(returns)
	if periodsPerYear > 0 {
		m *= periodsPerYear
	}
	return m
}

// MaxDrawdown is the largest decline from a running peak, in percent [0, 100].
// Non-positive peaks are ignored.
func MaxDrawdown(values []float64) float64 {
	dd, _ := maxDrawdown(values)
	return dd
}

// MaxDrawdownDuration is the longest run of periods spent below a prior peak.
func MaxDrawdownDuration(values []float64) int {
	_, n := maxDrawdown(values)
	return n
}

func maxDrawdown(values []float64) (float64, int) {
	peak := math.Inf(-1)
	var worst float64
	var under, longest int
	for _, v := range values {
		if v >= peak {
			peak = v
			under = 0
			continue
		}
		under++
		if under > longest {
			longest = under
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return math.Min(worst, 1) * 100, longest
}

// VaR is the historical value at risk: returns are sorted ascending and the
// magnitude of the one at index (1-confidence)*n is reported.
func VaR(returns []float64, confidence float64) float64 {
	sorted, idx := tailIndex(returns, confidence)
	if sorted == nil {
		return 0
	}
	return math.Abs(sorted[idx])
}

// CVaR is the mean magnitude of every return at or below the VaR index.
func CVaR(returns []float64, confidence float64) float64 {
	sorted, idx := tailIndex(returns, confidence)
	if sorted == nil {
		return 0
	}
	var sum float64
	for i := 0; i <= idx; i++ {
		sum += math.Abs(sorted[i])
	}
	return sum / float64(idx+1)
}

func tailIndex(returns []float64, confidence float64) ([]float64, int) {
	if len(returns) == 0 {
		return nil, 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	// 1e-9 keeps float error such as (1-0.9)*10 = 0.9999999999999998 on the
	// intended index.
	idx := int(math.Floor((1-confidence)*float64(len(sorted)) + 1e-9))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted, idx
}

// Beta is cov(asset, market) / var(market). It returns 0 when the series
// differ in length, have fewer than two points, or the market is flat.
func Beta(assetReturns, marketReturns []float64) float64 {
	if len(assetReturns) != len(marketReturns) || len(assetReturns) < 2 {
		return 0
	}
	v := sampleCovariance(marketReturns, marketReturns)
	if v == 0 {
		return 0
	}
	return sampleCovariance(assetReturns, marketReturns) / v
}

// InformationRatio is the mean active return (portfolio - benchmark) over the
// sample standard deviation of active returns.
func InformationRatio(portfolioReturns, benchmarkReturns []float64) float64 {
	if len(portfolioReturns) != len(benchmarkReturns) || len(portfolioReturns) < 2 {
		return 0
	}
	active := make([]float64, len(portfolioReturns))
	for i := range portfolioReturns {
		active[i] = portfolioReturns[i] - benchmarkReturns[i]
	}
	sd := SampleStandardDeviation(active)
	if sd == 0 {
		return 0
	}
	return ArithmeticAverage(active) / sd
}

// TotalReturn is the percentage change from start to end.
func TotalReturn(start, end float64) float64 {
	if start <= 0 {
		return 0
	}
	return (end/start - 1) * 100
}

// MaxCAGR caps the annualised growth of very short, steep runs, which would
// otherwise overflow to +Inf.
const MaxCAGR = 1e9

// CAGR is the compound annual growth rate in percent over years, capped at
// MaxCAGR.
func CAGR(start, end, years float64) float64 {
	if start <= 0 || years <= 0 {
		return 0
	}
	if end <= 0 {
		return -100
	}
	g := (math.Pow(end/start, 1/years) - 1) * 100
	if math.IsNaN(g) || g > MaxCAGR {
		return MaxCAGR
	}
	return g
}

// CalmarRatio is CAGR over maximum drawdown, both in percent.
func CalmarRatio(cagrPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return cagrPct / maxDrawdownPct
}
