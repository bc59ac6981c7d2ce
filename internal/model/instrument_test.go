package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLeveragedSymbol(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		symbol     string
		ok         bool
		underlying string
		leverage   float64
	}{
		{"SPY3X", true, "SPY", 3},
		{"QQQ_2X", true, "QQQ", 2},
		{"TLT-1.5x", true, "TLT", 1.5},
		{"SPY", false, "", 0},
		{"SPY1X", false, "", 0},
		{"3X", false, "", 0},
	} {
		inst, ok := ParseLeveragedSymbol(tc.symbol)
		require.Equal(t, tc.ok, ok, tc.symbol)
		if ok {
			assert.Equal(t, tc.underlying, inst.Underlying, tc.symbol)
			assert.InDelta(t, tc.leverage, inst.Leverage, 1e-12, tc.symbol)
			assert.True(t, inst.IsLeveraged())
		}
	}
}

func TestInstrumentValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Instrument{Symbol: "SPY3X", Leverage: 3, ExpenseRatio: 0.0095}.Validate())
	assert.Error(t, Instrument{Leverage: 2}.Validate())
	assert.Error(t, Instrument{Symbol: "X", Leverage: 0}.Validate())
	assert.Error(t, Instrument{Symbol: "X", Leverage: 2, ExpenseRatio: -0.1}.Validate())
}
