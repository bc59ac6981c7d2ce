package portfolio

import (
	"fmt"
	"log"
	"time"

	"portfolio-backtest/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// record assigns identity to tx, applies it and appends it to the history.
func (p *Portfolio) record(tx model.Transaction) (model.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Seq = len(p.transactions)
	if err := p.apply(tx); err != nil {
		return model.Transaction{}, err
	}
	p.transactions = append(p.transactions, tx)
	return tx, nil
}

// apply is the single place where cash and positions change.
func (p *Portfolio) apply(tx model.Transaction) error {
	switch tx.Kind {
	case model.KindBuy:
		p.trade(tx.Symbol, tx.Shares, tx.Price)
	case model.KindSell:
		p.trade(tx.Symbol, tx.Shares.Neg(), tx.Price)
	case model.KindSplit:
		pos, ok := p.positions[tx.Symbol]
		if !ok {
			return fmt.Errorf("split %s: %w", tx.Symbol, ErrNoPosition)
		}
		pos.Shares = pos.Shares.Mul(tx.Amount)
		pos.CostBasis = pos.CostBasis.DivRound(tx.Amount, precision)
		p.positions[tx.Symbol] = pos
	case model.KindFee, model.KindDeposit, model.KindWithdrawal, model.KindDividend, model.KindRebalance:
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, tx.Kind)
	}
	p.cash = p.cash.Add(tx.NetCashImpact())
	return nil
}

// trade merges a signed share delta into the position for symbol.
//
// Same-direction trades average the cost basis, reducing trades keep it, and
// a trade that flips the sign reopens the position at price.
func (p *Portfolio) trade(symbol string, delta, price decimal.Decimal) {
	if delta.IsZero() {
		return
	}
	pos, ok := p.positions[symbol]
	if !ok {
		p.positions[symbol] = model.Position{Symbol: symbol, Shares: delta, CostBasis: price}
		return
	}
	next := pos.Shares.Add(delta)
	switch {
	case next.IsZero():
		delete(p.positions, symbol)
		return
	case pos.Shares.Sign() == delta.Sign():
		cost := pos.Shares.Mul(pos.CostBasis).Add(delta.Mul(price))
		pos.CostBasis = cost.DivRound(next, precision)
	case pos.Shares.Sign() != next.Sign():
		pos.CostBasis = price
	}
	pos.Shares = next
	p.positions[symbol] = pos
}

func (p *Portfolio) Deposit(date time.Time, amount decimal.Decimal) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrNonPositiveAmount
	}
	return p.record(model.Transaction{Kind: model.KindDeposit, Amount: amount, Timestamp: date})
}

func (p *Portfolio) Withdraw(date time.Time, amount decimal.Decimal) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrNonPositiveAmount
	}
	if amount.GreaterThan(p.cash) {
		return model.Transaction{}, fmt.Errorf("withdraw %s with cash %s: %w", amount, p.cash, ErrInsufficientFunds)
	}
	return p.record(model.Transaction{Kind: model.KindWithdrawal, Amount: amount, Timestamp: date})
}

// Dividend credits perShare for every share held long in symbol.
func (p *Portfolio) Dividend(date time.Time, symbol string, perShare decimal.Decimal) (model.Transaction, error) {
	if !perShare.IsPositive() {
		return model.Transaction{}, ErrNonPositiveAmount
	}
	pos, ok := p.positions[symbol]
	if !ok || !pos.Shares.IsPositive() {
		return model.Transaction{}, fmt.Errorf("dividend %s: %w", symbol, ErrNoPosition)
	}
	return p.record(model.Transaction{
		Symbol:    symbol,
		Kind:      model.KindDividend,
		Shares:    pos.Shares,
		Price:     perShare,
		Amount:    pos.Shares.Mul(perShare),
		Timestamp: date,
	})
}

// Split multiplies the shares held in symbol by ratio and divides the cost basis.
func (p *Portfolio) Split(date time.Time, symbol string, ratio decimal.Decimal) (model.Transaction, error) {
	if !ratio.IsPositive() {
		return model.Transaction{}, ErrNonPositiveAmount
	}
	return p.record(model.Transaction{Symbol: symbol, Kind: model.KindSplit, Amount: ratio, Timestamp: date})
}

// ChargeFee debits a cost that is not tied to a trade, such as daily carry.
// When cash cannot cover it, long positions are sold pro-rata by value to
// raise the shortfall; if the whole portfolio is not enough the fee is capped
// at what is available. Cash never goes negative.
func (p *Portfolio) ChargeFee(date time.Time, amount decimal.Decimal, prices map[string]decimal.Decimal) ([]model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, nil
	}
	var out []model.Transaction
	if amount.GreaterThan(p.cash) {
		sells, err := p.raiseCash(date, amount.Sub(p.cash), prices)
		if err != nil {
			return out, err
		}
		out = append(out, sells...)
	}
	charge := amount
	if charge.GreaterThan(p.cash) {
		log.Printf("[Portfolio] %s: fee %s capped at cash %s: %v", date.Format(model.DateLayout), amount.StringFixed(2), p.cash.StringFixed(2), ErrInsufficientFunds)
		charge = p.cash
	}
	if !charge.IsPositive() {
		return out, nil
	}
	tx, err := p.record(model.Transaction{Kind: model.KindFee, Cost: charge, Timestamp: date})
	if err != nil {
		return out, err
	}
	return append(out, tx), nil
}

// raiseCash sells long positions pro-rata by value until at least shortfall
// has been raised, or everything priced has been sold.
func (p *Portfolio) raiseCash(date time.Time, shortfall decimal.Decimal, prices map[string]decimal.Decimal) ([]model.Transaction, error) {
	type holding struct {
		pos   model.Position
		price decimal.Decimal
		value decimal.Decimal
	}
	var holdings []holding
	invested := decimal.Zero
	for _, pos := range p.Positions() {
		px, ok := prices[pos.Symbol]
		if !ok || !px.IsPositive() || !pos.Shares.IsPositive() {
			continue
		}
		v := pos.Value(px)
		holdings = append(holdings, holding{pos: pos, price: px, value: v})
		invested = invested.Add(v)
	}
	if !invested.IsPositive() {
		return nil, nil
	}

	sellAll := !shortfall.LessThan(invested)
	var out []model.Transaction
	remaining := shortfall
	for i, h := range holdings {
		shares := h.pos.Shares
		if !sellAll {
			need := remaining
			if i < len(holdings)-1 {
				need = shortfall.Mul(h.value).DivRound(invested, precision)
			}
			remaining = remaining.Sub(need)
			shares = need.DivRound(h.price, precision)
			if shares.Mul(h.price).LessThan(need) {
				shares = shares.Add(decimal.New(1, -precision))
			}
			if shares.GreaterThan(h.pos.Shares) {
				shares = h.pos.Shares
			}
		}
		if !shares.IsPositive() {
			continue
		}
		tx, err := p.record(model.Transaction{
			Symbol:    h.pos.Symbol,
			Kind:      model.KindSell,
			Shares:    shares,
			Price:     h.price,
			Timestamp: date,
		})
		if err != nil {
			return out, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Replay rebuilds a portfolio by applying txs in order to a fresh ledger
// holding initialCash.
func Replay(initialCash decimal.Decimal, createdAt time.Time, txs []model.Transaction) (*Portfolio, error) {
	p, err := New(initialCash, createdAt)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if err := p.apply(txs[i]); err != nil {
			return nil, fmt.Errorf("replay transaction %d: %w", i, err)
		}
		p.transactions = append(p.transactions, txs[i])
	}
	return p, nil
}
