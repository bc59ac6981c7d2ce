package backtest

import (
	"time"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// daysPerYear annualises calendar spans.
const daysPerYear = 365.25

// EquityPoint is the portfolio state recorded at the end of one simulated date.
type EquityPoint struct {
	Date          time.Time       `json:"date"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Cash          decimal.Decimal `json:"cash"`
	PositionCount int             `json:"position_count"`
}

// Result is the finished output of one run. Treat it as immutable and derive
// further statistics through Metrics.
type Result struct {
	ID                  string              `json:"id"`
	StrategyName        string              `json:"strategy_name"`
	StartDate           time.Time           `json:"start_date"`
	EndDate             time.Time           `json:"end_date"`
	InitialValue        decimal.Decimal     `json:"initial_value"`
	FinalValue          decimal.Decimal     `json:"final_value"`
	Transactions        []model.Transaction `json:"transactions"`
	EquityCurve         []EquityPoint       `json:"equity_curve"`
	Metadata            map[string]string   `json:"metadata,omitempty"`
	TotalReturnPct      float64             `json:"total_return_pct"`
	AnnualizedReturnPct float64             `json:"annualized_return_pct"`
}

// NewResult assembles a Result and caches its headline returns. The final
// value is the last equity point, or initial when the curve is empty.
func NewResult(name string, start, end time.Time, initial decimal.Decimal, txs []model.Transaction, curve []EquityPoint, metadata map[string]string) *Result {
	final := initial
	if len(curve) > 0 {
		final = curve[len(curve)-1].TotalValue
	}
	r := &Result{
		ID:           uuid.NewString(),
		StrategyName: name,
		StartDate:    start,
		EndDate:      end,
		InitialValue: initial,
		FinalValue:   final,
		Transactions: txs,
		EquityCurve:  curve,
		Metadata:     metadata,
	}
	r.TotalReturnPct = risk.TotalReturn(initial.InexactFloat64(), final.InexactFloat64())
	r.AnnualizedReturnPct = risk.CAGR(initial.InexactFloat64(), final.InexactFloat64(), r.Years())
	return r
}

// Years is the calendar length of the run.
func (r *Result) Years() float64 {
	if !r.EndDate.After(r.StartDate) {
		return 0
	}
	return r.EndDate.Sub(r.StartDate).Hours() / 24 / daysPerYear
}

// Values returns the equity curve as plain floats.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		out[i] = p.TotalValue.InexactFloat64()
	}
	return out
}

func (r *Result) Dates() []time.Time {
	out := make([]time.Time, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		out[i] = p.Date
	}
	return out
}

// Metrics runs the risk calculator over the equity curve. The calendar length
// of the run is used when opts.Years is zero.
func (r *Result) Metrics(opts risk.Options) risk.Summary {
	if opts.Years <= 0 {
		opts.Years = r.Years()
	}
	return risk.Calculate(r.Values(), opts)
}
