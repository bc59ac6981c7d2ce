package data

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"portfolio-backtest/internal/model"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrUnknownSymbol = errors.New("no dataset for symbol")

// DatasetPattern matches every price file below a data directory.
const DatasetPattern = "**/*.{csv,json}"

// Dataset is one price file found under a data directory.
type Dataset struct {
	Symbol  string    `json:"symbol"`
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discover lists the price files under dir, sorted by symbol then path.
func Discover(dir string) ([]Dataset, error) {
	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, DatasetPattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	out := make([]Dataset, 0, len(matches))
	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, Dataset{
			Symbol:  SymbolFromPath(m),
			Path:    filepath.Join(dir, filepath.FromSlash(m)),
			Format:  strings.TrimPrefix(strings.ToLower(filepath.Ext(m)), "."),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// LoadFile reads a CSV or JSON price file.
func LoadFile(path string) (*model.PriceSeries, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported price file %s", path)
	}
}

// Load reads the requested symbols from dir, or every dataset when symbols is
// empty. When a symbol has several files the first one in path order wins.
func Load(dir string, symbols ...string) (*model.PriceData, error) {
	sets, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	bySymbol := map[string]Dataset{}
	for _, ds := range sets {
		if _, ok := bySymbol[ds.Symbol]; !ok {
			bySymbol[ds.Symbol] = ds
		}
	}
	if len(symbols) == 0 {
		for sym := range bySymbol {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
	}
	series := make([]*model.PriceSeries, 0, len(symbols))
	for _, sym := range symbols {
		ds, ok := bySymbol[strings.ToUpper(sym)]
		if !ok {
			return nil, fmt.Errorf("%s in %s: %w", sym, dir, ErrUnknownSymbol)
		}
		s, err := LoadFile(ds.Path)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return model.NewPriceData(series...)
}
