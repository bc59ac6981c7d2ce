package portfolio

import (
	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// View is the read-only face of a Portfolio handed to allocation policies.
type View interface {
	Cash() decimal.Decimal
	Position(symbol string) (model.Position, bool)
	Positions() []model.Position
	PositionCount() int
	TotalValue(prices map[string]decimal.Decimal) decimal.Decimal
	Allocation(prices map[string]decimal.Decimal) model.Allocation
}

type readOnly struct{ p *Portfolio }

// View returns a read-only view backed by p.
func (p *Portfolio) View() View { return readOnly{p: p} }

func (r readOnly) Cash() decimal.Decimal { return r.p.Cash() }

func (r readOnly) Position(symbol string) (model.Position, bool) { return r.p.Position(symbol) }

func (r readOnly) Positions() []model.Position { return r.p.Positions() }

func (r readOnly) PositionCount() int { return r.p.PositionCount() }

func (r readOnly) TotalValue(prices map[string]decimal.Decimal) decimal.Decimal {
	return r.p.TotalValue(prices)
}

func (r readOnly) Allocation(prices map[string]decimal.Decimal) model.Allocation {
	return r.p.Allocation(prices)
}
