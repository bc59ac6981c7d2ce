package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"

	"github.com/spf13/cobra"
)

func monteCarloCmd() *cobra.Command {
	var (
		cfgPath string
		runs    int
		window  int
		seed    int64
		workers int
		rolling int
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "Run one strategy over many random (or rolling) date windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prices, err := loadInputs(cfgPath)
			if err != nil {
				return err
			}
			mc := cfg.MonteCarlo
			if runs > 0 {
				mc.Runs = runs
			}
			if window > 0 {
				mc.WindowDays = window
			}
			if seed != 0 {
				mc.Seed = seed
			}
			if workers > 0 {
				mc.Workers = workers
			}
			if mc.Seed == 0 {
				mc.Seed = time.Now().UnixNano()
			}

			policy, err := cfg.Strategy.Policy()
			if err != nil {
				return err
			}
			opts, err := cfg.EngineOptions()
			if err != nil {
				return err
			}

			dates := prices.Dates(opts.Axis, opts.Start, opts.End)
			var windows []model.Window
			if rolling > 0 {
				windows = data.RollingWindows(dates, mc.WindowDays, rolling)
				if len(windows) == 0 {
					return fmt.Errorf("no rolling window of %d dates fits %d dates", mc.WindowDays, len(dates))
				}
			} else {
				windows, err = data.RandomWindows(dates, mc.WindowDays, mc.Runs, rand.New(rand.NewSource(mc.Seed)))
				if err != nil {
					return err
				}
			}

			results, err := backtest.New().RunBatch(context.Background(), prices, policy, windows, opts, mc.Workers)
			if err != nil {
				return err
			}
			summary := analysis.SummarizeRuns(results, risk.Options{RiskFreeRate: cfg.Backtest.RiskFreeRate})

			fmt.Printf("%s: %d windows of %d dates (seed %d), %d skipped\n", policy.Name(), summary.Runs, mc.WindowDays, mc.Seed, summary.Skipped)
			fmt.Printf("%-14s %10s %10s %10s %10s %10s %8s\n", "metric", "p05", "p50", "p95", "mean", "std", "pos%")
			for _, m := range analysis.Metrics {
				d := summary.Metrics[m]
				fmt.Printf("%-14s %10.3f %10.3f %10.3f %10.3f %10.3f %8.1f\n", m, d.P05, d.P50, d.P95, d.Mean, d.Std, d.PositivePct)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config")
	cmd.Flags().IntVarP(&runs, "runs", "n", 0, "Number of random windows (default monte_carlo.runs)")
	cmd.Flags().IntVar(&window, "window", 0, "Window length in dates (default monte_carlo.window_days)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default monte_carlo.seed, else time-based)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel runs (default monte_carlo.workers)")
	cmd.Flags().IntVar(&rolling, "rolling", 0, "Use every window advancing by this many dates instead of random draws")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
