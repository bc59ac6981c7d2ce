package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/data"

	"github.com/spf13/cobra"
)

func datasetsCmd() *cobra.Command {
	var (
		stats    bool
		adjusted bool
	)
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List the price files under the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dataDir
			if dir == "" {
				dir = "data"
			}
			found, err := data.Discover(dir)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Printf("No price files under %s\n", dir)
				return nil
			}
			if !stats {
				fmt.Printf("%-8s %-6s %10s  %s\n", "symbol", "format", "bytes", "path")
				for _, ds := range found {
					fmt.Printf("%-8s %-6s %10d  %s\n", ds.Symbol, ds.Format, ds.Size, ds.Path)
				}
				return nil
			}
			fmt.Printf("%-8s %-10s %-10s %6s %10s %10s %8s %8s\n", "symbol", "start", "end", "rows", "cagr%", "vol%", "maxdd%", "p95")
			for _, ds := range found {
				s, err := data.LoadFile(ds.Path)
				if err != nil {
					fmt.Printf("%-8s error: %v\n", ds.Symbol, err)
					continue
				}
				st := analysis.ComputeSeriesStats(s, adjusted)
				fmt.Printf("%-8s %-10s %-10s %6d %10.2f %10.2f %8.2f %8.2f\n",
					st.Symbol, st.Start.Format("2006-01-02"), st.End.Format("2006-01-02"), st.Count, st.CAGRPct, st.VolatilityPct, st.MaxDrawdownPct, st.P95)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&stats, "stats", "s", false, "Parse every file and print return and risk statistics")
	cmd.Flags().BoolVar(&adjusted, "adjusted", false, "Use adjusted closes for statistics")
	return cmd
}

func fetchCmd() *cobra.Command {
	var (
		baseURL string
		apiKey  string
		start   string
		end     string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "fetch <symbol> [symbol ...]",
		Short: "Download price series from a price service into JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var from, to time.Time
			var err error
			if start != "" {
				if from, err = data.ParseDate(start); err != nil {
					return err
				}
			}
			if end != "" {
				if to, err = data.ParseDate(end); err != nil {
					return err
				}
			}
			if outDir == "" {
				outDir = dataDir
			}
			if outDir == "" {
				outDir = "data"
			}

			client := data.NewPriceClient(apiKey, baseURL)
			for _, sym := range args {
				s, err := client.Fetch(cmd.Context(), strings.ToUpper(sym), from, to)
				if err != nil {
					return fmt.Errorf("%s: %w", sym, err)
				}
				path := filepath.Join(outDir, strings.ToLower(s.Symbol)+".json")
				if err := data.SaveJSON(s, path); err != nil {
					return err
				}
				fmt.Printf("Wrote %d prices to %s\n", s.Len(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Price service URL (defaults to PRICE_API_URL)")
	cmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "Price service API key (defaults to PRICE_API_KEY)")
	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default --data, else ./data)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if baseURL == "" {
			baseURL = os.Getenv("PRICE_API_URL")
		}
		if apiKey == "" {
			apiKey = os.Getenv("PRICE_API_KEY")
		}
	}
	return cmd
}

func synthCmd() *cobra.Command {
	var (
		symbol    string
		leverage  float64
		dailyCost float64
		out       string
	)
	cmd := &cobra.Command{
		Use:   "synth <underlying-file>",
		Short: "Build a daily-rebalanced leveraged series from an underlying price file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			under, err := data.LoadFile(args[0])
			if err != nil {
				return err
			}
			lev, err := data.Leveraged(under, strings.ToUpper(symbol), leverage, dailyCost)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), strings.ToLower(lev.Symbol)+".json")
			}
			if err := data.SaveJSON(lev, out); err != nil {
				return err
			}
			first, _ := lev.First()
			last, _ := lev.Last()
			fmt.Printf("Wrote %s (%gx %s): %d prices, %s -> %s\n", lev.Symbol, leverage, under.Symbol, lev.Len(), first.Close.StringFixed(2), last.Close.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol of the synthetic series")
	cmd.Flags().Float64VarP(&leverage, "leverage", "l", 2, "Daily leverage multiple")
	cmd.Flags().Float64Var(&dailyCost, "daily-cost", 0, "Cost drag subtracted from each daily return")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output JSON path")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}
