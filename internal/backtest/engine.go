package backtest

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"portfolio-backtest/internal/cost"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/portfolio"
	"portfolio-backtest/internal/strategy"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyDateRange = errors.New("no price dates in the requested range")
	ErrInvalidOptions = errors.New("invalid backtest options")
)

// Frequency is the minimum spacing between rebalances.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Daily, nil
	case Daily, Weekly, Monthly, Quarterly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidOptions, s)
	}
}

// MinDays is the number of calendar days that must pass before the next rebalance.
func (f Frequency) MinDays() int {
	switch f {
	case Weekly:
		return 7
	case Monthly:
		return 30
	case Quarterly:
		return 90
	default:
		return 0
	}
}

type Options struct {
	// Name labels the run; defaults to the policy name.
	Name        string
	Start       time.Time // zero = first available date
	End         time.Time // zero = last available date
	InitialCash decimal.Decimal
	Frequency   Frequency
	// Cost prices trades and daily carry; nil charges nothing.
	Cost        cost.Model
	Axis        model.DateAxis
	UseAdjusted bool
	Metadata    map[string]string
}

func (o Options) validate() error {
	if o.InitialCash.IsNegative() {
		return fmt.Errorf("%w: initial cash %s is negative", ErrInvalidOptions, o.InitialCash)
	}
	if !o.Start.IsZero() && !o.End.IsZero() && o.End.Before(o.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidOptions, o.End.Format(model.DateLayout), o.Start.Format(model.DateLayout))
	}
	if _, err := ParseFrequency(string(o.Frequency)); err != nil {
		return err
	}
	if _, err := model.ParseDateAxis(string(o.Axis)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

type Engine struct{}

func New() *Engine { return &Engine{} }

type state int

const (
	initializing state = iota
	stepping
	finalized
)

func (s state) String() string {
	switch s {
	case initializing:
		return "initializing"
	case stepping:
		return "stepping"
	case finalized:
		return "finalized"
	}
	return "unknown"
}

// run is the mutable state of a single simulation. It is never shared.
type run struct {
	state  state
	opts   Options
	data   *model.PriceData
	policy strategy.Policy

	dates         []time.Time
	pf            *portfolio.Portfolio
	lastRebalance time.Time
	rebalanced    bool
	curve         []EquityPoint
}

// Run simulates policy over data and returns the finished result.
//
// Dates without any price are skipped. The policy is consulted on the first
// date and then whenever the rebalance frequency has elapsed. Trade-level
// problems are logged and absorbed; an empty date range, invalid options or an
// invalid allocation from the policy abort the run.
func (e *Engine) Run(data *model.PriceData, policy strategy.Policy, opts Options) (*Result, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: policy is nil", ErrInvalidOptions)
	}
	r := &run{state: initializing, data: data, policy: policy}
	if err := r.initialize(opts); err != nil {
		return nil, err
	}
	for _, date := range r.dates {
		if err := r.step(date); err != nil {
			return nil, err
		}
	}
	return r.finalize(), nil
}

func (r *run) initialize(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	opts.Frequency, _ = ParseFrequency(string(opts.Frequency))
	opts.Axis, _ = model.ParseDateAxis(string(opts.Axis))
	if opts.Name == "" {
		opts.Name = r.policy.Name()
	}
	r.opts = opts

	r.dates = r.data.Dates(opts.Axis, opts.Start, opts.End)
	if len(r.dates) == 0 {
		return fmt.Errorf("%s between %s and %s: %w", opts.Name, fmtDate(opts.Start), fmtDate(opts.End), ErrEmptyDateRange)
	}
	pf, err := portfolio.New(opts.InitialCash, r.dates[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	r.pf = pf
	r.curve = make([]EquityPoint, 0, len(r.dates))
	r.state = stepping
	return nil
}

func (r *run) step(date time.Time) error {
	if r.state != stepping {
		return fmt.Errorf("step in state %s", r.state)
	}
	prices := r.data.PricesOn(date, r.opts.UseAdjusted)
	if len(prices) == 0 {
		return nil
	}

	traded := false
	if r.due(date) {
		target := r.policy.Allocate(strategy.Context{
			Date:      date,
			History:   r.data.HistoryUntil(date),
			Portfolio: r.pf.View(),
			Prices:    prices,
		})
		if len(target) > 0 {
			if err := target.Validate(); err != nil {
				return fmt.Errorf("%s on %s: %w", r.policy.Name(), date.Format(model.DateLayout), err)
			}
			txs, err := r.pf.Rebalance(date, target, prices, r.opts.Cost)
			if err != nil {
				return fmt.Errorf("rebalance on %s: %w", date.Format(model.DateLayout), err)
			}
			traded = len(txs) > 0
		}
		r.lastRebalance = date
		r.rebalanced = true
	}
	if !traded {
		if err := r.chargeCarry(date, prices); err != nil {
			return err
		}
	}

	r.curve = append(r.curve, EquityPoint{
		Date:          date,
		TotalValue:    r.pf.TotalValue(prices),
		Cash:          r.pf.Cash(),
		PositionCount: r.pf.PositionCount(),
	})
	return nil
}

// due reports whether the policy should be consulted on date.
func (r *run) due(date time.Time) bool {
	if !r.rebalanced {
		return true
	}
	return daysBetween(r.lastRebalance, date) >= r.opts.Frequency.MinDays()
}

// chargeCarry debits the cost of holding positions through a date on which
// nothing traded. Dates with trades already paid it inside the batch cost.
func (r *run) chargeCarry(date time.Time, prices map[string]decimal.Decimal) error {
	if r.opts.Cost == nil || r.pf.PositionCount() == 0 {
		return nil
	}
	positions := make(map[string]model.Position, r.pf.PositionCount())
	for _, pos := range r.pf.Positions() {
		positions[pos.Symbol] = pos
	}
	fee := r.opts.Cost.Calculate(map[string]decimal.Decimal{}, positions, prices, date)
	if !fee.IsPositive() {
		return nil
	}
	if _, err := r.pf.ChargeFee(date, fee, prices); err != nil {
		return fmt.Errorf("carry on %s: %w", date.Format(model.DateLayout), err)
	}
	return nil
}

func (r *run) finalize() *Result {
	r.state = finalized
	meta := map[string]string{
		"policy":    r.policy.Name(),
		"frequency": string(r.opts.Frequency),
		"axis":      string(r.opts.Axis),
		"adjusted":  fmt.Sprint(r.opts.UseAdjusted),
	}
	for k, v := range r.opts.Metadata {
		meta[k] = v
	}
	res := NewResult(r.opts.Name, r.dates[0], r.dates[len(r.dates)-1], r.opts.InitialCash, r.pf.Transactions(), r.curve, meta)
	log.Printf("[Backtest] %s %s..%s: %d points, %d transactions, final %s",
		res.StrategyName, fmtDate(res.StartDate), fmtDate(res.EndDate), len(res.EquityCurve), len(res.Transactions), res.FinalValue.StringFixed(2))
	return res
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Round(time.Hour).Hours() / 24)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}
