package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/report"
	"portfolio-backtest/internal/risk"
	"portfolio-backtest/internal/strategy"

	"github.com/spf13/cobra"
)

func compareCmd() *cobra.Command {
	var (
		metric  string
		chart   string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "compare <config.yaml> [other.yaml ...]",
		Short: "Run the strategies of several configs over the first config's data and costs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := analysis.ParseMetric(metric)
			if err != nil {
				return err
			}
			cfg, prices, err := loadInputs(args[0])
			if err != nil {
				return err
			}
			policies := map[string]strategy.Policy{}
			for _, path := range args {
				other, err := config.Load(path)
				if err != nil {
					return err
				}
				p, err := other.Strategy.Policy()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				if _, dup := policies[label]; dup {
					return fmt.Errorf("two configs are named %s", label)
				}
				policies[label] = p
			}
			opts, err := cfg.EngineOptions()
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = cfg.MonteCarlo.Workers
			}

			runs, err := backtest.New().CompareStrategies(context.Background(), prices, policies, opts, workers)
			if err != nil {
				return err
			}
			list := make([]*backtest.Result, 0, len(runs))
			for _, r := range runs {
				list = append(list, r)
			}
			ranked := analysis.Rank(list, m, risk.Options{RiskFreeRate: cfg.Backtest.RiskFreeRate})

			fmt.Printf("%-4s %-24s %-12s %-10s %-10s %-10s %-10s\n", "rank", "config", string(m), "return%", "cagr%", "maxdd%", "sharpe")
			for _, r := range ranked {
				fmt.Printf("%-4d %-24s %-12.3f %-10.2f %-10.2f %-10.2f %-10.3f\n",
					r.Rank, r.StrategyName, r.Score, r.Summary.TotalReturn, r.Summary.CAGR, r.Summary.MaxDrawdown, r.Summary.Sharpe)
			}

			if chart != "" {
				png, err := report.CompareChart(runs)
				if err != nil {
					return err
				}
				if err := writeFile(chart, png); err != nil {
					return err
				}
				fmt.Printf("Wrote chart to %s\n", chart)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&metric, "metric", "m", "sharpe", fmt.Sprintf("Ranking metric %v", analysis.Metrics))
	cmd.Flags().StringVar(&chart, "chart", "", "Optional path for a rebased comparison PNG")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel runs (default monte_carlo.workers)")
	return cmd
}
