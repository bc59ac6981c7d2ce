package risk

import (
	"encoding/json"
	"math"
)

// Options tunes Calculate. Zero values select the defaults.
type Options struct {
	RiskFreeRate   float64
	PeriodsPerYear float64 // default 252
	Confidence     float64 // default 0.95
	// Years is the calendar length of the curve; derived from the number of
	// periods when zero.
	Years float64
	// Benchmark is an optional value series aligned with the equity curve.
	Benchmark []float64
}

func (o Options) withDefaults() Options {
	if o.PeriodsPerYear <= 0 {
		o.PeriodsPerYear = TradingDaysPerYear
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		o.Confidence = 0.95
	}
	return o
}

// Summary is the fixed set of statistics reported for an equity curve.
// Returns, volatility, drawdown and VaR figures are percentages.
type Summary struct {
	Periods             int     `json:"periods"`
	TotalReturn         float64 `json:"total_return_pct"`
	CAGR                float64 `json:"cagr_pct"`
	Volatility          float64 `json:"volatility_pct"`
	Sharpe              float64 `json:"sharpe"`
	Sortino             float64 `json:"sortino"`
	MaxDrawdown         float64 `json:"max_drawdown_pct"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"`
	Calmar              float64 `json:"calmar"`
	VaR                 float64 `json:"var_pct"`
	CVaR                float64 `json:"cvar_pct"`
	Beta                float64 `json:"beta"`
	InformationRatio    float64 `json:"information_ratio"`
	BestPeriod          float64 `json:"best_period_pct"`
	WorstPeriod         float64 `json:"worst_period_pct"`
	WinRate             float64 `json:"win_rate_pct"`
}

// Calculate derives every statistic of Summary from a value series.
func Calculate(values []float64, opts Options) Summary {
	opts = opts.withDefaults()
	s := Summary{}
	if len(values) == 0 {
		return s
	}
	rets := Returns(values)
	s.Periods = len(rets)
	s.TotalReturn = TotalReturn(values[0], values[len(values)-1])

	years := opts.Years
	if years <= 0 {
		years = float64(len(values)-1) / opts.PeriodsPerYear
	}
	s.CAGR = CAGR(values[0], values[len(values)-1], years)
	s.Volatility = Volatility(rets, opts.PeriodsPerYear) * 100
	s.Sharpe = SharpeRatio(rets, opts.RiskFreeRate, opts.PeriodsPerYear)
	s.Sortino = SortinoRatio(rets, opts.RiskFreeRate, opts.PeriodsPerYear)
	s.MaxDrawdown, s.MaxDrawdownDuration = maxDrawdown(values)
	s.Calmar = CalmarRatio(s.CAGR, s.MaxDrawdown)
	s.VaR = VaR(rets, opts.Confidence) * 100
	s.CVaR = CVaR(rets, opts.Confidence) * 100

	if len(opts.Benchmark) == len(values) {
		bench := Returns(opts.Benchmark)
		if len(bench) == len(rets) {
			s.Beta = Beta(rets, bench)
			s.InformationRatio = InformationRatio(rets, bench)
		}
	}

	if len(rets) > 0 {
		best, worst := math.Inf(-1), math.Inf(1)
		wins := 0
		for _, r := range rets {
			best = math.Max(best, r)
			worst = math.Min(worst, r)
			if r > 0 {
				wins++
			}
		}
		s.BestPeriod = best * 100
		s.WorstPeriod = worst * 100
		s.WinRate = float64(wins) / float64(len(rets)) * 100
	}
	return s
}

// MarshalJSON writes non-finite ratios (an unbounded Sortino) as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	var sortino *float64
	if !math.IsInf(s.Sortino, 0) && !math.IsNaN(s.Sortino) {
		sortino = &s.Sortino
	}
	return json.Marshal(struct {
		plain
		Sortino *float64 `json:"sortino"`
	}{plain: plain(s), Sortino: sortino})
}

// UnmarshalJSON restores a null Sortino as +Inf.
func (s *Summary) UnmarshalJSON(raw []byte) error {
	type plain Summary
	aux := struct {
		*plain
		Sortino *float64 `json:"sortino"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	if aux.Sortino == nil {
		s.Sortino = math.Inf(1)
	} else {
		s.Sortino = *aux.Sortino
	}
	return nil
}
