package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// SeriesDocument is the JSON form of one price series, shared by files on
// disk and the remote price service.
type SeriesDocument struct {
	Symbol string          `json:"symbol"`
	Prices []PriceDocument `json:"prices"`
}

type PriceDocument struct {
	Date          string              `json:"date"`
	Open          decimal.Decimal     `json:"open"`
	High          decimal.Decimal     `json:"high"`
	Low           decimal.Decimal     `json:"low"`
	Close         decimal.Decimal     `json:"close"`
	Volume        decimal.Decimal     `json:"volume"`
	AdjustedClose decimal.NullDecimal `json:"adjusted_close"`
}

// Series converts the document into a validated PriceSeries.
func (d SeriesDocument) Series() (*model.PriceSeries, error) {
	if len(d.Prices) == 0 {
		return nil, fmt.Errorf("%s: %w", d.Symbol, ErrNoRows)
	}
	points := make([]model.PricePoint, 0, len(d.Prices))
	for i, p := range d.Prices {
		date, err := ParseDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("%s price %d: %w", d.Symbol, i, err)
		}
		pt := model.PricePoint{
			Date:          date,
			Open:          p.Open,
			High:          p.High,
			Low:           p.Low,
			Close:         p.Close,
			Volume:        p.Volume,
			AdjustedClose: p.AdjustedClose,
		}
		if pt.Open.IsZero() {
			pt.Open = pt.Close
		}
		if pt.High.IsZero() {
			pt.High = pt.Close
		}
		if pt.Low.IsZero() {
			pt.Low = pt.Close
		}
		points = append(points, pt)
	}
	return model.NewPriceSeries(d.Symbol, points)
}

// Document converts a series into its JSON form.
func Document(s *model.PriceSeries) SeriesDocument {
	doc := SeriesDocument{Symbol: s.Symbol}
	for _, p := range s.Points() {
		doc.Prices = append(doc.Prices, PriceDocument{
			Date:          p.Date.Format(model.DateLayout),
			Open:          p.Open,
			High:          p.High,
			Low:           p.Low,
			Close:         p.Close,
			Volume:        p.Volume,
			AdjustedClose: p.AdjustedClose,
		})
	}
	return doc
}

func DecodeJSON(r io.Reader, fallbackSymbol string) (*model.PriceSeries, error) {
	var doc SeriesDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fallbackSymbol, err)
	}
	if doc.Symbol == "" {
		doc.Symbol = fallbackSymbol
	}
	return doc.Series()
}

func LoadJSON(path string) (*model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeJSON(f, SymbolFromPath(path))
}

// SaveJSON writes s to path, creating parent directories.
func SaveJSON(s *model.PriceSeries, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(Document(s), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.Symbol, err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
