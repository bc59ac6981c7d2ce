// cli runs portfolio backtests from YAML configs and local price files.
package main

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/report"
	"portfolio-backtest/internal/risk"
	"portfolio-backtest/internal/storage"

	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Backtest portfolio strategies on daily price data",
		Long: `cli simulates allocation strategies against daily prices with
trading, holding and leverage costs, and reports the risk of the result.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !verbose {
				// Per-trade warnings from the ledger are only interesting with -v.
				quietLogs()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Price data directory (overrides data_dir in the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every engine event")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(monteCarloCmd())
	rootCmd.AddCommand(datasetsCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(synthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadInputs reads and validates the config, then the price data it names.
func loadInputs(cfgPath string) (*config.Config, *model.PriceData, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	dir := cfg.DataDir
	if dataDir != "" {
		dir = dataDir
	}
	if dir == "" {
		return nil, nil, fmt.Errorf("no data directory: set data_dir in %s or pass --data", cfgPath)
	}
	prices, err := data.Load(dir, cfg.Symbols...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, prices, nil
}

func runCmd() *cobra.Command {
	var (
		cfgPath string
		outDir  string
		chart   string
		dbPath  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prices, err := loadInputs(cfgPath)
			if err != nil {
				return err
			}
			policy, err := cfg.Strategy.Policy()
			if err != nil {
				return err
			}
			opts, err := cfg.EngineOptions()
			if err != nil {
				return err
			}
			res, err := backtest.New().Run(prices, policy, opts)
			if err != nil {
				return err
			}

			printResult(res, res.Metrics(risk.Options{RiskFreeRate: cfg.Backtest.RiskFreeRate}))

			if outDir != "" {
				txPath := filepath.Join(outDir, "transactions.csv")
				if err := backtest.WriteCSVFile(txPath, func(w io.Writer) error {
					return backtest.WriteTransactionsCSV(w, res.Transactions)
				}); err != nil {
					return err
				}
				eqPath := filepath.Join(outDir, "equity.csv")
				if err := backtest.WriteCSVFile(eqPath, func(w io.Writer) error {
					return backtest.WriteEquityCSV(w, res.EquityCurve)
				}); err != nil {
					return err
				}
				fmt.Printf("Wrote %d transactions to %s and %d points to %s\n", len(res.Transactions), txPath, len(res.EquityCurve), eqPath)
			}
			if chart != "" {
				png, err := report.EquityChart(res)
				if err != nil {
					return err
				}
				if err := writeFile(chart, png); err != nil {
					return err
				}
				fmt.Printf("Wrote chart to %s\n", chart)
			}

			if dbPath == "" {
				dbPath = cfg.Storage.SQLitePath
			}
			if dbPath != "" {
				store, err := storage.Open(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.SaveResult(res); err != nil {
					return err
				}
				fmt.Printf("Saved result %s to %s\n", res.ID, dbPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for transactions.csv and equity.csv")
	cmd.Flags().StringVar(&chart, "chart", "", "Optional path for an equity curve PNG")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to save the result in (overrides storage.sqlite_path)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func printResult(r *backtest.Result, s risk.Summary) {
	fmt.Printf("%s  %s..%s  (%d points, %d transactions)\n",
		r.StrategyName, r.StartDate.Format(model.DateLayout), r.EndDate.Format(model.DateLayout), len(r.EquityCurve), len(r.Transactions))
	fmt.Printf("  initial %s  final %s\n", r.InitialValue.StringFixed(2), r.FinalValue.StringFixed(2))
	fmt.Printf("  %-14s %10.2f%%   %-14s %10.2f%%\n", "total return", s.TotalReturn, "cagr", s.CAGR)
	fmt.Printf("  %-14s %10.2f%%   %-14s %10.2f%%\n", "volatility", s.Volatility, "max drawdown", s.MaxDrawdown)
	fmt.Printf("  %-14s %11.3f   %-14s %11s\n", "sharpe", s.Sharpe, "sortino", fmtRatio(s.Sortino))
	fmt.Printf("  %-14s %11.3f   %-14s %10.2f%%\n", "calmar", s.Calmar, "var 95", s.VaR)
}

func fmtRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.3f", v)
}

func writeFile(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func quietLogs() {
	log.SetOutput(io.Discard)
}
