package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptySymbol   = errors.New("symbol is empty")
	ErrDuplicateDate = errors.New("duplicate date in price series")
)

// PricePoint is one daily bar. Immutable once created.
type PricePoint struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`

	// AdjustedClose is optional; most synthetic series leave it unset.
	AdjustedClose decimal.NullDecimal `json:"adjusted_close"`
}

// Price returns the adjusted close when requested and available, otherwise the close.
func (p PricePoint) Price(adjusted bool) decimal.Decimal {
	if adjusted && p.AdjustedClose.Valid {
		return p.AdjustedClose.Decimal
	}
	return p.Close
}

// PriceSeries is an ordered per-symbol sequence of PricePoints,
// strictly increasing by date.
type PriceSeries struct {
	Symbol string
	points []PricePoint
}

// NewPriceSeries copies and sorts points by date. Duplicate dates are rejected.
func NewPriceSeries(symbol string, points []PricePoint) (*PriceSeries, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Date.Before(cp[j].Date)
	})
	for i := 1; i < len(cp); i++ {
		if cp[i].Date.Equal(cp[i-1].Date) {
			return nil, fmt.Errorf("%s %s: %w", symbol, cp[i].Date.Format(DateLayout), ErrDuplicateDate)
		}
	}
	return &PriceSeries{Symbol: symbol, points: cp}, nil
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Points returns a copy of the underlying points.
func (s *PriceSeries) Points() []PricePoint {
	if s == nil {
		return nil
	}
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

func (s *PriceSeries) Dates() []time.Time {
	if s == nil {
		return nil
	}
	out := make([]time.Time, len(s.points))
	for i := range s.points {
		out[i] = s.points[i].Date
	}
	return out
}

func (s *PriceSeries) First() (PricePoint, bool) {
	if s.Len() == 0 {
		return PricePoint{}, false
	}
	return s.points[0], true
}

func (s *PriceSeries) Last() (PricePoint, bool) {
	if s.Len() == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// At returns the point dated exactly date.
func (s *PriceSeries) At(date time.Time) (PricePoint, bool) {
	i := s.search(date)
	if i < s.Len() && s.points[i].Date.Equal(date) {
		return s.points[i], true
	}
	return PricePoint{}, false
}

// PriceOn returns the nearest available price at or before date.
func (s *PriceSeries) PriceOn(date time.Time, adjusted bool) (decimal.Decimal, bool) {
	i := s.search(date)
	if i < s.Len() && s.points[i].Date.Equal(date) {
		return s.points[i].Price(adjusted), true
	}
	if i == 0 {
		return decimal.Zero, false
	}
	return s.points[i-1].Price(adjusted), true
}

// Until returns the prefix of the series up to and including date.
// The returned series shares storage with s and must not be modified.
func (s *PriceSeries) Until(date time.Time) *PriceSeries {
	if s == nil {
		return nil
	}
	i := s.search(date)
	if i < len(s.points) && s.points[i].Date.Equal(date) {
		i++
	}
	return &PriceSeries{Symbol: s.Symbol, points: s.points[:i:i]}
}

// Between returns the points dated within [start, end]. Zero bounds are open.
func (s *PriceSeries) Between(start, end time.Time) *PriceSeries {
	if s == nil {
		return nil
	}
	lo := 0
	if !start.IsZero() {
		lo = s.search(start)
	}
	hi := len(s.points)
	if !end.IsZero() {
		hi = s.Until(end).Len()
	}
	if hi < lo {
		hi = lo
	}
	return &PriceSeries{Symbol: s.Symbol, points: s.points[lo:hi:hi]}
}

// Closes returns the price of every point as float64, for statistics.
func (s *PriceSeries) Closes(adjusted bool) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.points))
	for i := range s.points {
		out[i] = s.points[i].Price(adjusted).InexactFloat64()
	}
	return out
}

// search returns the index of the first point dated at or after date.
func (s *PriceSeries) search(date time.Time) int {
	if s == nil {
		return 0
	}
	return sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(date)
	})
}

// DateLayout is the canonical day format for CSV input/output and API payloads.
const DateLayout = "2006-01-02"
