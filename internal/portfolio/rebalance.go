package portfolio

import (
	"log"
	"time"

	"portfolio-backtest/internal/cost"
	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

var (
	deadBand     = decimal.NewFromFloat(model.DeadBandPct)
	shareEpsilon = decimal.NewFromFloat(model.ShareEpsilon)
)

// order is one proposed trade inside a rebalance batch.
type order struct {
	symbol string
	shares decimal.Decimal // signed
	price  decimal.Decimal
	cost   decimal.Decimal
}

func (o order) notional() decimal.Decimal { return o.shares.Mul(o.price).Abs() }

// Rebalance trades toward target, a percentage allocation.
//
// Symbols are processed in lexicographic order and the CASH entry is ignored.
// A symbol is skipped when it has no positive price or when its drift is
// inside the dead-band. The cost model prices the whole batch once against the
// pre-trade positions and the charge is split across trades by notional.
// Sells execute before buys. When cash cannot fund every buy plus its cost,
// all buys are scaled down by the same factor so cash ends at or above zero.
//
// The returned transactions are the ones actually recorded.
func (p *Portfolio) Rebalance(date time.Time, target model.Allocation, prices map[string]decimal.Decimal, cm cost.Model) ([]model.Transaction, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	total := p.TotalValue(prices)
	if !total.IsPositive() {
		return nil, nil
	}

	orders := p.proposeOrders(date, target, prices, total)
	if len(orders) == 0 {
		return nil, nil
	}
	p.allocateCost(orders, cm, prices, date)

	var executed []model.Transaction
	var buys []order
	for _, o := range orders {
		if o.shares.IsPositive() {
			buys = append(buys, o)
			continue
		}
		proceeds := o.notional().Sub(o.cost)
		if p.cash.Add(proceeds).IsNegative() {
			log.Printf("[Portfolio] %s: skip sell %s, cost %s exceeds proceeds: %v", date.Format(model.DateLayout), o.symbol, o.cost.StringFixed(4), ErrInsufficientFunds)
			continue
		}
		tx, err := p.record(model.Transaction{
			Symbol:    o.symbol,
			Kind:      model.KindSell,
			Shares:    o.shares.Abs(),
			Price:     o.price,
			Cost:      o.cost,
			Timestamp: date,
		})
		if err != nil {
			return executed, err
		}
		executed = append(executed, tx)
	}

	scale := p.affordableScale(date, buys)
	if !scale.IsPositive() {
		return executed, nil
	}
	for _, o := range buys {
		shares := o.shares.Mul(scale)
		if !shares.IsPositive() {
			continue
		}
		tx, err := p.record(model.Transaction{
			Symbol:    o.symbol,
			Kind:      model.KindBuy,
			Shares:    shares,
			Price:     o.price,
			Cost:      o.cost.Mul(scale),
			Timestamp: date,
		})
		if err != nil {
			return executed, err
		}
		executed = append(executed, tx)
	}
	return executed, nil
}

// proposeOrders converts allocation drift into signed share deltas.
func (p *Portfolio) proposeOrders(date time.Time, target model.Allocation, prices map[string]decimal.Decimal, total decimal.Decimal) []order {
	var orders []order
	for _, sym := range target.Symbols() {
		px, ok := prices[sym]
		if !ok || !px.IsPositive() {
			log.Printf("[Portfolio] %s: skip %s: %v", date.Format(model.DateLayout), sym, ErrMissingPrice)
			continue
		}
		held := p.positions[sym].Shares
		current := p.pct(held.Mul(px), total)
		want := decimal.NewFromFloat(target[sym])
		diff := want.Sub(current)
		if diff.Abs().LessThan(deadBand) {
			continue
		}

		var shares decimal.Decimal
		if want.IsZero() {
			shares = held.Neg()
		} else {
			shares = diff.Mul(total).Shift(-2).DivRound(px, precision)
		}
		if shares.IsZero() {
			continue
		}
		if shares.IsNegative() && held.IsPositive() {
			excess := shares.Abs().Sub(held)
			if excess.IsPositive() {
				if excess.GreaterThan(shareEpsilon) {
					log.Printf("[Portfolio] %s: skip sell %s %s of %s held: %v", date.Format(model.DateLayout), sym, shares.Abs(), held, ErrInsufficientShares)
					continue
				}
				shares = held.Neg()
			}
		}
		orders = append(orders, order{symbol: sym, shares: shares, price: px})
	}
	return orders
}

// allocateCost prices the batch once and spreads the charge by notional.
// The last order absorbs the rounding remainder so the parts sum to the whole.
func (p *Portfolio) allocateCost(orders []order, cm cost.Model, prices map[string]decimal.Decimal, date time.Time) {
	if cm == nil {
		return
	}
	trades := make(map[string]decimal.Decimal, len(orders))
	totalNotional := decimal.Zero
	for _, o := range orders {
		trades[o.symbol] = o.shares
		totalNotional = totalNotional.Add(o.notional())
	}
	charge := cm.Calculate(trades, p.positionMap(), prices, date)
	if !charge.IsPositive() || !totalNotional.IsPositive() {
		return
	}
	remaining := charge
	for i := range orders {
		if i == len(orders)-1 {
			orders[i].cost = decimal.Max(remaining, decimal.Zero)
			break
		}
		c := charge.Mul(orders[i].notional()).DivRound(totalNotional, precision)
		orders[i].cost = c
		remaining = remaining.Sub(c)
	}
}

// affordableScale returns the factor in [0, 1] applied to every buy so that
// the buys and their costs fit in cash.
func (p *Portfolio) affordableScale(date time.Time, buys []order) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if len(buys) == 0 {
		return one
	}
	required := decimal.Zero
	for _, o := range buys {
		required = required.Add(o.notional()).Add(o.cost)
	}
	if !required.GreaterThan(p.cash) {
		return one
	}
	if !p.cash.IsPositive() {
		log.Printf("[Portfolio] %s: skip %d buys with cash %s: %v", date.Format(model.DateLayout), len(buys), p.cash.StringFixed(2), ErrInsufficientFunds)
		return decimal.Zero
	}
	scale := p.cash.DivRound(required, precision)
	if scale.Mul(required).GreaterThan(p.cash) {
		scale = scale.Sub(decimal.New(1, -precision))
	}
	log.Printf("[Portfolio] %s: buys need %s with cash %s, scaling by %s", date.Format(model.DateLayout), required.StringFixed(2), p.cash.StringFixed(2), scale.StringFixed(6))
	return scale
}
