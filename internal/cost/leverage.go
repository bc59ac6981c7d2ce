package cost

import (
	"time"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// LeverageDecay charges the financing and fund expenses of synthetic leveraged
// instruments held overnight:
//
//	cost = notional * ((L-1)*rate(date) + ExpenseRatio) / 252
//
// Symbols are recognised through Registry first and, when UseNamingConvention
// is set, through the "<underlying><L>X" naming convention.
type LeverageDecay struct {
	Registry            map[string]float64
	UseNamingConvention bool
	Schedule            Schedule
	ExpenseRatio        float64
}

// NewLeverageDecay returns a decay model using the default rate schedule.
func NewLeverageDecay(registry map[string]float64) LeverageDecay {
	return LeverageDecay{
		Registry:            registry,
		UseNamingConvention: true,
		Schedule:            DefaultSchedule,
		ExpenseRatio:        DefaultExpenseRatio,
	}
}

// Leverage returns the leverage for symbol, if it is a leveraged instrument.
func (l LeverageDecay) Leverage(symbol string) (float64, bool) {
	if lev, ok := l.Registry[symbol]; ok {
		return lev, lev > 1
	}
	if l.UseNamingConvention {
		if inst, ok := model.ParseLeveragedSymbol(symbol); ok {
			return inst.Leverage, true
		}
	}
	return 0, false
}

// DailyRate is the fraction of notional charged per day for leverage lev on date.
func (l LeverageDecay) DailyRate(lev float64, date time.Time) float64 {
	if lev <= 1 {
		return 0
	}
	return ((lev-1)*l.Schedule.RateOn(date) + l.ExpenseRatio) / TradingDaysPerYear
}

func (l LeverageDecay) Calculate(_ map[string]decimal.Decimal, positions map[string]model.Position, prices map[string]decimal.Decimal, date time.Time) decimal.Decimal {
	total := decimal.Zero
	for sym, pos := range positions {
		lev, ok := l.Leverage(sym)
		if !ok {
			continue
		}
		px, ok := priceOf(prices, sym)
		if !ok {
			continue
		}
		rate := l.DailyRate(lev, date)
		if rate <= 0 {
			continue
		}
		total = total.Add(pos.Value(px).Abs().Mul(decimal.NewFromFloat(rate)))
	}
	return total
}
