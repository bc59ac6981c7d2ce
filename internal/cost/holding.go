package cost

import (
	"time"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// Holding is a daily carry charge on existing position notional.
// It reads pre-trade positions only and ignores the trades themselves.
type Holding struct {
	AnnualRate decimal.Decimal
}

func NewHolding(annualRate float64) Holding {
	return Holding{AnnualRate: decimal.NewFromFloat(annualRate)}
}

func (h Holding) Calculate(_ map[string]decimal.Decimal, positions map[string]model.Position, prices map[string]decimal.Decimal, _ time.Time) decimal.Decimal {
	if !h.AnnualRate.IsPositive() {
		return decimal.Zero
	}
	notional := decimal.Zero
	for sym, pos := range positions {
		px, ok := priceOf(prices, sym)
		if !ok {
			continue
		}
		notional = notional.Add(pos.Value(px).Abs())
	}
	return notional.Mul(h.AnnualRate).Div(decimal.NewFromInt(TradingDaysPerYear))
}
