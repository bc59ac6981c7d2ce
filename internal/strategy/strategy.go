package strategy

import (
	"time"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/portfolio"

	"github.com/shopspring/decimal"
)

// Context is everything a policy may look at on a rebalance date.
// History never extends past Date.
type Context struct {
	Date      time.Time
	History   map[string]*model.PriceSeries
	Portfolio portfolio.View
	Prices    map[string]decimal.Decimal
}

// Policy maps a Context to a target allocation in percent. Returning an empty
// allocation means "leave the portfolio as it is".
// Implementations must not keep per-run state so one value can drive
// concurrent runs.
type Policy interface {
	Name() string
	Allocate(ctx Context) model.Allocation
}

type funcPolicy struct {
	name string
	fn   func(Context) model.Allocation
}

func (f funcPolicy) Name() string { return f.name }
func (f funcPolicy) Allocate(ctx Context) model.Allocation { return f.fn(ctx) }

// Func wraps a plain function as a named Policy.
func Func(name string, fn func(Context) model.Allocation) Policy {
	return funcPolicy{name: name, fn: fn}
}

// withExits gives every held symbol missing from target a zero weight, so a
// rebalance sells what the policy no longer selects.
func withExits(ctx Context, target model.Allocation) model.Allocation {
	if ctx.Portfolio == nil {
		return target
	}
	for _, pos := range ctx.Portfolio.Positions() {
		if _, ok := target[pos.Symbol]; !ok {
			target[pos.Symbol] = 0
		}
	}
	return target
}
