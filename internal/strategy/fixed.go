package strategy

import (
	"sort"

	"portfolio-backtest/internal/model"
)

// Fixed returns the same weights on every rebalance.
type Fixed struct {
	Weights model.Allocation
}

func (f *Fixed) Name() string { return "fixed" }

func (f *Fixed) Allocate(Context) model.Allocation {
	out := make(model.Allocation, len(f.Weights))
	for sym, w := range f.Weights {
		out[sym] = w
	}
	return out
}

// EqualWeight splits 100% evenly across Symbols, or across every symbol priced
// on the rebalance date when Symbols is empty. Other holdings are sold.
type EqualWeight struct {
	Symbols []string
}

func (e *EqualWeight) Name() string { return "equal_weight" }

func (e *EqualWeight) Allocate(ctx Context) model.Allocation {
	var syms []string
	if len(e.Symbols) > 0 {
		for _, s := range e.Symbols {
			if _, ok := ctx.Prices[s]; ok {
				syms = append(syms, s)
			}
		}
	} else {
		for s := range ctx.Prices {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return model.Allocation{}
	}
	return withExits(ctx, equalWeights(syms))
}

// BuyAndHold allocates Weights once, while the portfolio holds nothing, and
// never trades again.
type BuyAndHold struct {
	Weights model.Allocation
}

func (b *BuyAndHold) Name() string { return "buy_and_hold" }

func (b *BuyAndHold) Allocate(ctx Context) model.Allocation {
	if ctx.Portfolio != nil && ctx.Portfolio.PositionCount() > 0 {
		return model.Allocation{}
	}
	out := make(model.Allocation, len(b.Weights))
	for sym, w := range b.Weights {
		out[sym] = w
	}
	return out
}

func equalWeights(symbols []string) model.Allocation {
	out := model.Allocation{}
	if len(symbols) == 0 {
		return out
	}
	sort.Strings(symbols)
	w := 100 / float64(len(symbols))
	for _, s := range symbols {
		out[s] = w
	}
	return out
}
