// Package data turns files, remote services and synthetic generators into
// model.PriceData for the simulation engine.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio-backtest/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrNoRows        = errors.New("no price rows")
)

var dateLayouts = []string{model.DateLayout, time.RFC3339, "01/02/2006", "2006/01/02"}

// ParseDate accepts the date layouts found in common price exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseCSV reads a daily price table with a header row. Only Date and Close
// are required; Open, High and Low default to Close. Column names are matched
// case-insensitively and "Adj Close" fills the adjusted close. Rows with an
// empty or "null" close are skipped.
func ParseCSV(r io.Reader, symbol string) (*model.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", symbol, err)
	}
	cols := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.NewReplacer(" ", "", "_", "").Replace(key)
		cols[key] = i
	}
	if i, ok := cols["adjustedclose"]; ok {
		cols["adjclose"] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("%s: %w: date", symbol, ErrMissingColumn)
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("%s: %w: close", symbol, ErrMissingColumn)
	}

	var points []model.PricePoint
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", symbol, line, err)
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		if dateCol >= len(rec) || closeCol >= len(rec) {
			continue
		}
		closeStr := field("close")
		if closeStr == "" || strings.EqualFold(closeStr, "null") {
			continue
		}
		date, err := ParseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", symbol, line, err)
		}
		c, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: close: %w", symbol, line, err)
		}
		p := model.PricePoint{Date: date, Open: c, High: c, Low: c, Close: c}
		for name, dst := range map[string]*decimal.Decimal{"open": &p.Open, "high": &p.High, "low": &p.Low, "volume": &p.Volume} {
			if v, err := decimal.NewFromString(field(name)); err == nil {
				*dst = v
			}
		}
		if v, err := decimal.NewFromString(field("adjclose")); err == nil {
			p.AdjustedClose = decimal.NullDecimal{Decimal: v, Valid: true}
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoRows)
	}
	return model.NewPriceSeries(symbol, points)
}

// SymbolFromPath derives a symbol from a file name: "data/spy.csv" is "SPY".
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

func LoadCSV(path string) (*model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f, SymbolFromPath(path))
}
