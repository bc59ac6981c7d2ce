package data

import (
	"fmt"
	"time"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// FromReturns builds a series that starts at startPrice on start and compounds
// one return per calendar day.
func FromReturns(symbol string, start time.Time, startPrice float64, returns []float64) (*model.PriceSeries, error) {
	if startPrice <= 0 {
		return nil, fmt.Errorf("%s: start price must be positive", symbol)
	}
	points := make([]model.PricePoint, 0, len(returns)+1)
	price := startPrice
	points = append(points, flatPoint(start, price))
	for i, r := range returns {
		price *= 1 + r
		if price < 0 {
			price = 0
		}
		points = append(points, flatPoint(start.AddDate(0, 0, i+1), price))
	}
	return model.NewPriceSeries(symbol, points)
}

// Leveraged derives a daily-reset leveraged series from underlying: each day
// it returns leverage times the underlying's return minus dailyCost. The
// result starts at the underlying's first price and never goes below zero.
func Leveraged(underlying *model.PriceSeries, symbol string, leverage, dailyCost float64) (*model.PriceSeries, error) {
	inst := model.Instrument{Symbol: symbol, Underlying: underlying.Symbol, Leverage: leverage}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	src := underlying.Points()
	if len(src) == 0 {
		return nil, fmt.Errorf("%s: %w", underlying.Symbol, ErrNoRows)
	}
	points := make([]model.PricePoint, 0, len(src))
	prev := src[0].Close.InexactFloat64()
	price := prev
	points = append(points, flatPoint(src[0].Date, price))
	for _, p := range src[1:] {
		cur := p.Close.InexactFloat64()
		if prev > 0 {
			price *= 1 + leverage*(cur/prev-1) - dailyCost
		}
		if price < 0 {
			price = 0
		}
		prev = cur
		points = append(points, flatPoint(p.Date, price))
	}
	return model.NewPriceSeries(symbol, points)
}

// Oscillating returns n repetitions of the pair (up, down).
func Oscillating(up, down float64, n int) []float64 {
	out := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		out = append(out, up, down)
	}
	return out
}

func flatPoint(date time.Time, price float64) model.PricePoint {
	v := decimal.NewFromFloat(price)
	return model.PricePoint{Date: date, Open: v, High: v, Low: v, Close: v}
}
