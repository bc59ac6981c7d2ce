package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, close string) PricePoint {
	c := decimal.RequireFromString(close)
	return PricePoint{Date: day(d), Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1000)}
}

func TestNewPriceSeries(t *testing.T) {
	t.Parallel()
	_, err := NewPriceSeries("", nil)
	assert.ErrorIs(t, err, ErrEmptySymbol)

	_, err = NewPriceSeries("A", []PricePoint{bar(2, "10"), bar(2, "11")})
	assert.ErrorIs(t, err, ErrDuplicateDate)

	s, err := NewPriceSeries("A", []PricePoint{bar(3, "12"), bar(1, "10"), bar(2, "11")})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, s.Dates())
	first, ok := s.First()
	require.True(t, ok)
	assert.True(t, first.Close.Equal(decimal.NewFromInt(10)))
	last, ok := s.Last()
	require.True(t, ok)
	assert.True(t, last.Close.Equal(decimal.NewFromInt(12)))
}

func TestPriceOn(t *testing.T) {
	t.Parallel()
	s, err := NewPriceSeries("A", []PricePoint{bar(2, "10"), bar(5, "11")})
	require.NoError(t, err)

	_, ok := s.PriceOn(day(1), false)
	assert.False(t, ok, "no price before the first point")

	px, ok := s.PriceOn(day(2), false)
	require.True(t, ok)
	assert.True(t, px.Equal(decimal.NewFromInt(10)))

	px, ok = s.PriceOn(day(4), false)
	require.True(t, ok, "gaps resolve to the nearest earlier price")
	assert.True(t, px.Equal(decimal.NewFromInt(10)))

	px, ok = s.PriceOn(day(9), false)
	require.True(t, ok)
	assert.True(t, px.Equal(decimal.NewFromInt(11)))

	_, ok = s.At(day(4))
	assert.False(t, ok)
}

func TestPriceAdjusted(t *testing.T) {
	t.Parallel()
	p := bar(1, "100")
	assert.True(t, p.Price(true).Equal(decimal.NewFromInt(100)), "falls back to close")
	p.AdjustedClose = decimal.NullDecimal{Decimal: decimal.NewFromInt(95), Valid: true}
	assert.True(t, p.Price(true).Equal(decimal.NewFromInt(95)))
	assert.True(t, p.Price(false).Equal(decimal.NewFromInt(100)))
}

func TestUntilHasNoLookAhead(t *testing.T) {
	t.Parallel()
	s, err := NewPriceSeries("A", []PricePoint{bar(1, "1"), bar(2, "2"), bar(3, "3"), bar(4, "4")})
	require.NoError(t, err)

	u := s.Until(day(2))
	assert.Equal(t, 2, u.Len())
	last, _ := u.Last()
	assert.Equal(t, day(2), last.Date)

	assert.Equal(t, 0, s.Until(day(0)).Len())
	assert.Equal(t, 4, s.Until(day(30)).Len())
	assert.Equal(t, 2, s.Between(day(2), day(3)).Len())
	assert.Equal(t, 3, s.Between(day(2), time.Time{}).Len())
}

func TestPriceDataDates(t *testing.T) {
	t.Parallel()
	a, err := NewPriceSeries("A", []PricePoint{bar(1, "1"), bar(2, "2"), bar(3, "3")})
	require.NoError(t, err)
	b, err := NewPriceSeries("B", []PricePoint{bar(2, "5"), bar(3, "0"), bar(4, "6")})
	require.NoError(t, err)

	_, err = NewPriceData(a, a)
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	d, err := NewPriceData(b, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, d.Symbols())

	assert.Equal(t, []time.Time{day(2), day(3)}, d.Dates(AxisIntersection, time.Time{}, time.Time{}))
	assert.Equal(t, []time.Time{day(1), day(2), day(3), day(4)}, d.Dates(AxisUnion, time.Time{}, time.Time{}))
	assert.Equal(t, []time.Time{day(3)}, d.Dates(AxisIntersection, day(3), day(10)))
	assert.Empty(t, d.Dates(AxisIntersection, day(5), day(10)))

	prices := d.PricesOn(day(3), false)
	assert.Len(t, prices, 1, "non-positive prices are excluded")
	assert.True(t, prices["A"].Equal(decimal.NewFromInt(3)))

	prices = d.PricesOn(day(4), false)
	assert.True(t, prices["A"].Equal(decimal.NewFromInt(3)), "forward filled")
	assert.True(t, prices["B"].Equal(decimal.NewFromInt(6)))

	hist := d.HistoryUntil(day(2))
	assert.Equal(t, 2, hist["A"].Len())
	assert.Equal(t, 1, hist["B"].Len())
}

func TestParseDateAxis(t *testing.T) {
	t.Parallel()
	ax, err := ParseDateAxis("")
	require.NoError(t, err)
	assert.Equal(t, AxisIntersection, ax)
	ax, err = ParseDateAxis("union")
	require.NoError(t, err)
	assert.Equal(t, AxisUnion, ax)
	_, err = ParseDateAxis("sideways")
	assert.Error(t, err)
}
