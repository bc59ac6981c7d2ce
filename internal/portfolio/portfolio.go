// Package portfolio is the ledger of a single simulation run: it owns cash,
// positions and the append-only transaction history, and is the only code
// allowed to mutate them. Every mutation is recorded as a transaction and
// applied through one routine, so replaying the history from the initial cash
// reproduces the state exactly.
package portfolio

import (
	"errors"
	"sort"
	"time"

	"portfolio-backtest/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrMissingPrice       = errors.New("missing price")
	ErrNonPositiveAmount  = errors.New("amount must be positive")
	ErrNegativeCash       = errors.New("initial cash must not be negative")
	ErrNoPosition         = errors.New("no position held")
	errUnknownKind        = errors.New("unknown transaction kind")
)

// precision is the number of decimal places kept by ledger divisions.
const precision = 16

var hundred = decimal.NewFromInt(100)

// Portfolio is owned by exactly one simulation run and is not safe for
// concurrent use.
type Portfolio struct {
	ID           string
	CreatedAt    time.Time
	InitialValue decimal.Decimal

	cash         decimal.Decimal
	positions    map[string]model.Position
	transactions []model.Transaction
}

func New(initialCash decimal.Decimal, createdAt time.Time) (*Portfolio, error) {
	if initialCash.IsNegative() {
		return nil, ErrNegativeCash
	}
	return &Portfolio{
		ID:           uuid.NewString(),
		CreatedAt:    createdAt,
		InitialValue: initialCash,
		cash:         initialCash,
		positions:    map[string]model.Position{},
	}, nil
}

func (p *Portfolio) Cash() decimal.Decimal { return p.cash }

func (p *Portfolio) Position(symbol string) (model.Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns all positions sorted by symbol.
func (p *Portfolio) Positions() []model.Position {
	out := make([]model.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (p *Portfolio) PositionCount() int { return len(p.positions) }

// Transactions returns a copy of the transaction history in recording order.
func (p *Portfolio) Transactions() []model.Transaction {
	out := make([]model.Transaction, len(p.transactions))
	copy(out, p.transactions)
	return out
}

// positionMap returns a copy of the positions keyed by symbol.
func (p *Portfolio) positionMap() map[string]model.Position {
	out := make(map[string]model.Position, len(p.positions))
	for sym, pos := range p.positions {
		out[sym] = pos
	}
	return out
}

// markPrice is the price used to value a position: the current price when
// available, otherwise its cost basis.
func (p *Portfolio) markPrice(pos model.Position, prices map[string]decimal.Decimal) decimal.Decimal {
	if px, ok := prices[pos.Symbol]; ok && px.IsPositive() {
		return px
	}
	return pos.CostBasis
}

// TotalValue returns cash plus the value of every position.
func (p *Portfolio) TotalValue(prices map[string]decimal.Decimal) decimal.Decimal {
	total := p.cash
	for _, pos := range p.positions {
		total = total.Add(pos.Value(p.markPrice(pos, prices)))
	}
	return total
}

// Allocation returns each position's share of total value in percent, plus a
// CASH entry. It is empty when the total value is not positive.
func (p *Portfolio) Allocation(prices map[string]decimal.Decimal) model.Allocation {
	out := model.Allocation{}
	total := p.TotalValue(prices)
	if !total.IsPositive() {
		return out
	}
	for sym, pos := range p.positions {
		out[sym] = p.pct(pos.Value(p.markPrice(pos, prices)), total).InexactFloat64()
	}
	out[model.CashSymbol] = p.pct(p.cash, total).InexactFloat64()
	return out
}

func (p *Portfolio) pct(value, total decimal.Decimal) decimal.Decimal {
	return value.Mul(hundred).DivRound(total, precision)
}

// SameState reports whether both portfolios hold identical cash and positions.
func (p *Portfolio) SameState(o *Portfolio) bool {
	if !p.cash.Equal(o.cash) || len(p.positions) != len(o.positions) {
		return false
	}
	for sym, a := range p.positions {
		b, ok := o.positions[sym]
		if !ok || !a.Shares.Equal(b.Shares) || !a.CostBasis.Equal(b.CostBasis) {
			return false
		}
	}
	return true
}
