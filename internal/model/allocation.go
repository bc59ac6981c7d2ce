package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// CashSymbol is the pseudo-symbol for uninvested cash in an Allocation.
const CashSymbol = "CASH"

const (
	// DeadBandPct is the minimum drift, in percentage points, before a rebalance trades.
	DeadBandPct = 0.01
	// AllocationSumTolerance is how far above 100 an allocation sum may drift.
	AllocationSumTolerance = 1e-6
	// ShareEpsilon absorbs share rounding when a sell slightly exceeds the holding.
	ShareEpsilon = 1e-9
)

var ErrInvalidAllocation = errors.New("invalid allocation")

// Allocation maps symbols to target percentages in [0, 100].
// The remainder up to 100 is implicitly cash.
type Allocation map[string]float64

// Validate rejects negative or non-finite weights and sums above 100.
// The CASH entry is ignored.
func (a Allocation) Validate() error {
	sum := 0.0
	for _, sym := range a.Symbols() {
		w := a[sym]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s weight is not finite", ErrInvalidAllocation, sym)
		}
		if w < 0 {
			return fmt.Errorf("%w: %s weight %.6f is negative", ErrInvalidAllocation, sym, w)
		}
		sum += w
	}
	if sum > 100+AllocationSumTolerance {
		return fmt.Errorf("%w: weights sum to %.6f", ErrInvalidAllocation, sum)
	}
	return nil
}

// Symbols returns the non-cash symbols in lexicographic order.
func (a Allocation) Symbols() []string {
	out := make([]string, 0, len(a))
	for sym := range a {
		if sym == CashSymbol {
			continue
		}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Sum totals every weight, including CASH.
func (a Allocation) Sum() float64 {
	s := 0.0
	for _, w := range a {
		s += w
	}
	return s
}
