// Package cost converts a batch of proposed trades into a monetary charge.
//
// Every component implements Model and components stack by summation, so a
// simulation can charge commissions, carry and leverage decay together
// without the ledger knowing which kinds of cost are configured.
package cost

import (
	"time"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// TradingDaysPerYear pro-rates annual rates to a daily charge.
const TradingDaysPerYear = 252

// Model computes the cost of a batch of trades on date.
//
// trades maps symbol to signed share deltas, positions is the pre-trade state
// and prices the prices used for valuation. An empty trades map asks for the
// cost of simply holding positions through date. The result is never negative.
type Model interface {
	Calculate(trades map[string]decimal.Decimal, positions map[string]model.Position, prices map[string]decimal.Decimal, date time.Time) decimal.Decimal
}

// Composite sums the output of each component.
type Composite []Model

func (c Composite) Calculate(trades map[string]decimal.Decimal, positions map[string]model.Position, prices map[string]decimal.Decimal, date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, m := range c {
		if m == nil {
			continue
		}
		v := m.Calculate(trades, positions, prices, date)
		if v.IsPositive() {
			total = total.Add(v)
		}
	}
	return total
}

// None charges nothing.
func None() Model { return Composite{} }

// Func adapts a plain function to Model.
type Func func(trades map[string]decimal.Decimal, positions map[string]model.Position, prices map[string]decimal.Decimal, date time.Time) decimal.Decimal

func (f Func) Calculate(trades map[string]decimal.Decimal, positions map[string]model.Position, prices map[string]decimal.Decimal, date time.Time) decimal.Decimal {
	return f(trades, positions, prices, date)
}

// priceOf returns a usable price for symbol.
func priceOf(prices map[string]decimal.Decimal, symbol string) (decimal.Decimal, bool) {
	px, ok := prices[symbol]
	if !ok || !px.IsPositive() {
		return decimal.Zero, false
	}
	return px, true
}
