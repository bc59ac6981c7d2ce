package model

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Instrument describes a tradable symbol and, for daily-rebalanced leveraged
// products, its leverage and annual expense ratio.
// Units:
// - Leverage: multiple of the underlying daily return (1 = unlevered)
// - ExpenseRatio: annual fraction (0.0095 = 0.95%)
type Instrument struct {
	Symbol       string  `json:"symbol" yaml:"symbol"`
	Underlying   string  `json:"underlying,omitempty" yaml:"underlying"`
	Leverage     float64 `json:"leverage" yaml:"leverage"`
	ExpenseRatio float64 `json:"expense_ratio,omitempty" yaml:"expense_ratio"`
}

func (i Instrument) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return errors.New("Symbol must be set")
	}
	if math.IsNaN(i.Leverage) || i.Leverage <= 0 {
		return errors.New("Leverage must be > 0")
	}
	if i.ExpenseRatio < 0 || i.ExpenseRatio >= 1 {
		return errors.New("ExpenseRatio must be in [0, 1)")
	}
	return nil
}

// IsLeveraged reports whether the instrument amplifies its underlying.
func (i Instrument) IsLeveraged() bool {
	return i.Leverage > 1
}

// leveragedName matches the naming convention for synthetic leveraged symbols,
// e.g. "SPY3X", "QQQ_2X", "TLT-1.5x".
var leveragedName = regexp.MustCompile(`^(.+?)[_-]?(\d+(?:\.\d+)?)[xX]$`)

// ParseLeveragedSymbol extracts the underlying and leverage from a symbol that
// follows the "<underlying><L>X" convention.
func ParseLeveragedSymbol(symbol string) (Instrument, bool) {
	m := leveragedName.FindStringSubmatch(symbol)
	if m == nil {
		return Instrument{}, false
	}
	lev, err := strconv.ParseFloat(m[2], 64)
	if err != nil || lev <= 1 {
		return Instrument{}, false
	}
	return Instrument{Symbol: symbol, Underlying: m[1], Leverage: lev}, true
}
