package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/report"
	"portfolio-backtest/internal/risk"
	"portfolio-backtest/internal/strategy"

	"github.com/shopspring/decimal"
)

// Demo:
// - Build a synthetic underlying that alternates +up / -down every day
// - Derive a daily-reset leveraged version of it
// - Buy and hold each, and a 60/40 mix, to show volatility decay
func main() {
	up := flag.Float64("up", 0.10, "Daily gain of the underlying")
	down := flag.Float64("down", -0.0909090909, "Daily loss of the underlying")
	cycles := flag.Int("cycles", 126, "Number of up/down pairs")
	leverage := flag.Float64("leverage", 2, "Leverage of the derived series")
	cfgPath := flag.String("config", "", "Optional YAML config supplying the cost model")
	chart := flag.String("chart", "", "Optional path to write a comparison PNG")
	saveDir := flag.String("save", "", "Optional directory to write the synthetic series as JSON")
	flag.Parse()

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	under, err := data.FromReturns("U", start, 100, data.Oscillating(*up, *down, *cycles))
	if err != nil {
		panic(err)
	}
	levSymbol := fmt.Sprintf("U%gX", *leverage)
	lev, err := data.Leveraged(under, levSymbol, *leverage, 0)
	if err != nil {
		panic(err)
	}
	prices, err := model.NewPriceData(under, lev)
	if err != nil {
		panic(err)
	}

	if *saveDir != "" {
		for _, s := range []*model.PriceSeries{under, lev} {
			if err := data.SaveJSON(s, filepath.Join(*saveDir, s.Symbol+".json")); err != nil {
				panic(err)
			}
		}
	}

	opts := backtest.Options{InitialCash: decimal.NewFromInt(10000), Frequency: backtest.Daily}
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cm, err := cfg.Cost.Model()
		if err != nil {
			panic(err)
		}
		opts.Cost = cm
	}

	policies := map[string]strategy.Policy{
		"hold_underlying": &strategy.BuyAndHold{Weights: model.Allocation{"U": 100}},
		"hold_leveraged":  &strategy.BuyAndHold{Weights: model.Allocation{levSymbol: 100}},
		"mix_60_40":       &strategy.Fixed{Weights: model.Allocation{"U": 60, levSymbol: 40}},
	}
	runs, err := backtest.New().CompareStrategies(context.Background(), prices, policies, opts, len(policies))
	if err != nil {
		panic(err)
	}

	first, _ := under.First()
	lastU, _ := under.Last()
	lastL, _ := lev.Last()
	fmt.Printf("Underlying %s: %s -> %s over %d days\n", under.Symbol, first.Close.StringFixed(2), lastU.Close.StringFixed(2), under.Len())
	fmt.Printf("Leveraged  %s: %s -> %s\n\n", lev.Symbol, first.Close.StringFixed(2), lastL.Close.StringFixed(2))

	names := make([]string, 0, len(runs))
	for name := range runs {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("%-16s %12s %10s %10s %10s\n", "strategy", "final", "return%", "vol%", "maxdd%")
	for _, name := range names {
		r := runs[name]
		s := r.Metrics(risk.Options{})
		fmt.Printf("%-16s %12s %10.2f %10.2f %10.2f\n", name, r.FinalValue.StringFixed(2), s.TotalReturn, s.Volatility, s.MaxDrawdown)
	}

	if *chart != "" {
		png, err := report.CompareChart(runs)
		if err != nil {
			panic(err)
		}
		if err := os.MkdirAll(filepath.Dir(*chart), 0o755); err != nil {
			panic(err)
		}
		if err := os.WriteFile(*chart, png, 0o644); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote chart to %s\n", *chart)
	}
}
