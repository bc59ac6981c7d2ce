package strategy

import (
	"math"
	"sort"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"
)

// Momentum holds the TopN symbols with the best trailing return over Lookback
// observations, equally weighted, and sells every other holding. Symbols with
// a non-positive trailing return are left in cash when AbsoluteFilter is set.
type Momentum struct {
	Lookback       int
	TopN           int
	AbsoluteFilter bool
	UseAdjusted    bool
}

func (m *Momentum) Name() string { return "momentum" }

type scored struct {
	symbol string
	score  float64
}

func (m *Momentum) Allocate(ctx Context) model.Allocation {
	lookback := m.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	var ranked []scored
	evaluated := 0
	for sym, hist := range ctx.History {
		if _, priced := ctx.Prices[sym]; !priced {
			continue
		}
		closes := hist.Closes(m.UseAdjusted)
		if len(closes) <= lookback {
			continue
		}
		past, now := closes[len(closes)-1-lookback], closes[len(closes)-1]
		if past <= 0 {
			continue
		}
		ret := now/past - 1
		evaluated++
		if m.AbsoluteFilter && ret <= 0 {
			continue
		}
		ranked = append(ranked, scored{symbol: sym, score: ret})
	}
	if evaluated == 0 {
		return model.Allocation{}
	}
	if len(ranked) == 0 {
		return withExits(ctx, model.Allocation{model.CashSymbol: 100})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].symbol < ranked[j].symbol
	})
	n := m.TopN
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	syms := make([]string, 0, n)
	for _, r := range ranked[:n] {
		syms = append(syms, r.symbol)
	}
	return withExits(ctx, equalWeights(syms))
}

// InverseVolatility weights every priced symbol by the inverse of its
// trailing volatility over Lookback returns. Holdings without enough history
// to be weighted are sold.
type InverseVolatility struct {
	Lookback    int
	UseAdjusted bool
}

func (v *InverseVolatility) Name() string { return "inverse_volatility" }

func (v *InverseVolatility) Allocate(ctx Context) model.Allocation {
	lookback := v.Lookback
	if lookback <= 1 {
		lookback = 20
	}
	inv := map[string]float64{}
	sum := 0.0
	for sym, hist := range ctx.History {
		if _, priced := ctx.Prices[sym]; !priced {
			continue
		}
		closes := hist.Closes(v.UseAdjusted)
		if len(closes) <= lookback {
			continue
		}
		vol := risk.Volatility(risk.Returns(closes[len(closes)-1-lookback:]), 0)
		if vol <= 0 || math.IsNaN(vol) {
			continue
		}
		inv[sym] = 1 / vol
		sum += 1 / vol
	}
	out := model.Allocation{}
	if sum == 0 {
		return out
	}
	for sym, w := range inv {
		out[sym] = w / sum * 100
	}
	return withExits(ctx, out)
}
