package report

import (
	"bytes"
	"testing"
	"time"

	"portfolio-backtest/internal/backtest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func curve(start time.Time, values ...int64) *backtest.Result {
	pts := make([]backtest.EquityPoint, len(values))
	for i, v := range values {
		pts[i] = backtest.EquityPoint{Date: start.AddDate(0, 0, i), TotalValue: decimal.NewFromInt(v)}
	}
	end := pts[len(pts)-1].Date
	return backtest.NewResult("test", start, end, decimal.NewFromInt(values[0]), nil, pts, nil)
}

func TestEquityChart(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buf, err := EquityChart(curve(start, 100, 110, 105, 120))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf, pngMagic))

	_, err = EquityChart(&backtest.Result{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCompareChart(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buf, err := CompareChart(map[string]*backtest.Result{
		"a": curve(start, 100, 110, 120),
		"b": curve(start.AddDate(0, 0, 1), 50, 45, 55, 60),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf, pngMagic))

	_, err = CompareChart(map[string]*backtest.Result{"empty": nil})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRebased(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := curve(start.AddDate(0, 0, 1), 50, 55)
	axis := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2), start.AddDate(0, 0, 3)}
	assert.Equal(t, []float64{100, 100, 110, 110}, rebased(r, axis))
}

func TestBounds(t *testing.T) {
	t.Parallel()
	lo, hi := bounds([]float64{100, 200})
	assert.InDelta(t, 95, lo, 1e-9)
	assert.InDelta(t, 205, hi, 1e-9)
	lo, hi = bounds([]float64{0, 0})
	assert.Less(t, lo, hi)
}
