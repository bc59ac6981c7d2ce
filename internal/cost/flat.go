package cost

import (
	"math"
	"time"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// Flat is a proportional commission with an optional square-root market impact term:
//
//	cost = sum(|shares*price| * RateBps/10000 + ImpactCoefficient*sqrt(|shares*price|))
type Flat struct {
	RateBps           decimal.Decimal
	ImpactCoefficient float64
}

func NewFlat(rateBps float64) Flat {
	return Flat{RateBps: decimal.NewFromFloat(rateBps)}
}

func (f Flat) Calculate(trades map[string]decimal.Decimal, _ map[string]model.Position, prices map[string]decimal.Decimal, _ time.Time) decimal.Decimal {
	total := decimal.Zero
	for sym, shares := range trades {
		px, ok := priceOf(prices, sym)
		if !ok {
			continue
		}
		notional := shares.Mul(px).Abs()
		if notional.IsZero() {
			continue
		}
		total = total.Add(notional.Mul(f.RateBps).Shift(-4))
		if f.ImpactCoefficient > 0 {
			impact := f.ImpactCoefficient * math.Sqrt(notional.InexactFloat64())
			total = total.Add(decimal.NewFromFloat(impact))
		}
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
