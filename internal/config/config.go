package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/cost"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/strategy"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	DataDir string   `yaml:"data_dir" json:"data_dir,omitempty"`
	Symbols []string `yaml:"symbols" json:"symbols,omitempty"`
	// Optional: load cost parameters from a separate YAML (e.g. configs/costs/*.yaml).
	// Fields set in Cost override the ones loaded from CostFile.
	CostFile   string           `yaml:"cost_file" json:"cost_file,omitempty"`
	Cost       CostConfig       `yaml:"cost" json:"cost"`
	Strategy   StrategyConfig   `yaml:"strategy" json:"strategy"`
	Backtest   BacktestConfig   `yaml:"backtest" json:"backtest"`
	MonteCarlo MonteCarloConfig `yaml:"monte_carlo" json:"monte_carlo"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
}

type CostConfig struct {
	FlatBps           float64        `yaml:"flat_bps" json:"flat_bps"`
	ImpactCoefficient float64        `yaml:"impact_coefficient" json:"impact_coefficient"`
	HoldingAnnualRate float64        `yaml:"holding_annual_rate" json:"holding_annual_rate"`
	Leverage          LeverageConfig `yaml:"leverage" json:"leverage"`
}

type LeverageConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ExpenseRatio defaults to cost.DefaultExpenseRatio when zero.
	ExpenseRatio float64            `yaml:"expense_ratio" json:"expense_ratio"`
	Registry     map[string]float64 `yaml:"registry" json:"registry,omitempty"`
	// Rates replaces the default financing-rate eras when set.
	Rates []RateEra `yaml:"rates" json:"rates,omitempty"`
}

type RateEra struct {
	From string  `yaml:"from" json:"from"`
	Rate float64 `yaml:"rate" json:"rate"`
}

type StrategyConfig struct {
	Name   string         `yaml:"name" json:"name"`
	Params map[string]any `yaml:"params" json:"params,omitempty"`
}

type BacktestConfig struct {
	Start        string  `yaml:"start" json:"start,omitempty"`
	End          string  `yaml:"end" json:"end,omitempty"`
	InitialCash  float64 `yaml:"initial_cash" json:"initial_cash"`
	Frequency    string  `yaml:"frequency" json:"frequency,omitempty"`
	Axis         string  `yaml:"axis" json:"axis,omitempty"`
	UseAdjusted  bool    `yaml:"use_adjusted" json:"use_adjusted"`
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
}

type MonteCarloConfig struct {
	Runs       int   `yaml:"runs" json:"runs"`
	WindowDays int   `yaml:"window_days" json:"window_days"`
	Seed       int64 `yaml:"seed" json:"seed"`
	Workers    int   `yaml:"workers" json:"workers"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path,omitempty"`
}

const (
	DefaultInitialCash = 10000
	DefaultRuns        = 100
	DefaultWindowDays  = 252
)

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.CostFile != "" {
		costPath := c.CostFile
		if !filepath.IsAbs(costPath) {
			// Prefer paths relative to the config file, falling back to cwd.
			cand := filepath.Join(filepath.Dir(path), costPath)
			if _, err := os.Stat(cand); err == nil {
				costPath = cand
			}
		}
		loaded, err := LoadCostFile(costPath)
		if err != nil {
			return nil, err
		}
		c.Cost = MergeCost(loaded, c.Cost)
	}
	if c.DataDir != "" && !filepath.IsAbs(c.DataDir) {
		cand := filepath.Join(filepath.Dir(path), c.DataDir)
		if _, err := os.Stat(cand); err == nil {
			c.DataDir = cand
		}
	}
	return c, nil
}

// Parse decodes YAML without defaults or validation.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills the fields a concise config may leave out.
func (c *Config) ApplyDefaults() {
	if c.Backtest.InitialCash == 0 {
		c.Backtest.InitialCash = DefaultInitialCash
	}
	if c.Backtest.Frequency == "" {
		c.Backtest.Frequency = string(backtest.Daily)
	}
	if c.Backtest.Axis == "" {
		c.Backtest.Axis = string(model.AxisIntersection)
	}
	if c.MonteCarlo.Runs == 0 {
		c.MonteCarlo.Runs = DefaultRuns
	}
	if c.MonteCarlo.WindowDays == 0 {
		c.MonteCarlo.WindowDays = DefaultWindowDays
	}
	if c.MonteCarlo.Workers == 0 {
		c.MonteCarlo.Workers = runtime.NumCPU()
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}
	if _, err := c.Strategy.Policy(); err != nil {
		return fmt.Errorf("strategy config invalid: %w", err)
	}
	if _, err := c.Cost.Model(); err != nil {
		return fmt.Errorf("cost config invalid: %w", err)
	}
	if _, err := c.Backtest.Options(nil); err != nil {
		return fmt.Errorf("backtest config invalid: %w", err)
	}
	if c.MonteCarlo.Runs < 0 {
		return errors.New("monte_carlo.runs must be >= 0")
	}
	if c.MonteCarlo.WindowDays != 0 && c.MonteCarlo.WindowDays < 2 {
		return errors.New("monte_carlo.window_days must be >= 2")
	}
	if c.MonteCarlo.Workers < 0 {
		return errors.New("monte_carlo.workers must be >= 0")
	}
	return nil
}

func (s StrategyConfig) Policy() (strategy.Policy, error) {
	return strategy.Build(s.Name, s.Params)
}

// Model assembles the configured cost components. A config with every field
// zero yields a model that charges nothing.
func (c CostConfig) Model() (cost.Model, error) {
	if c.FlatBps < 0 || c.ImpactCoefficient < 0 || c.HoldingAnnualRate < 0 {
		return nil, errors.New("cost rates must be >= 0")
	}
	var out cost.Composite
	if c.FlatBps > 0 || c.ImpactCoefficient > 0 {
		f := cost.NewFlat(c.FlatBps)
		f.ImpactCoefficient = c.ImpactCoefficient
		out = append(out, f)
	}
	if c.HoldingAnnualRate > 0 {
		out = append(out, cost.NewHolding(c.HoldingAnnualRate))
	}
	if c.Leverage.Enabled {
		lev := cost.NewLeverageDecay(c.Leverage.Registry)
		if c.Leverage.ExpenseRatio < 0 || c.Leverage.ExpenseRatio >= 1 {
			return nil, errors.New("cost.leverage.expense_ratio must be in [0, 1)")
		}
		if c.Leverage.ExpenseRatio > 0 {
			lev.ExpenseRatio = c.Leverage.ExpenseRatio
		}
		for sym, l := range c.Leverage.Registry {
			if l <= 0 {
				return nil, fmt.Errorf("cost.leverage.registry.%s must be > 0", sym)
			}
		}
		if len(c.Leverage.Rates) > 0 {
			eras := make([]cost.Era, 0, len(c.Leverage.Rates))
			for _, r := range c.Leverage.Rates {
				from, err := parseDate(r.From)
				if err != nil {
					return nil, fmt.Errorf("cost.leverage.rates: %w", err)
				}
				eras = append(eras, cost.Era{From: from, Rate: r.Rate})
			}
			sched, err := cost.NewSchedule(eras)
			if err != nil {
				return nil, fmt.Errorf("cost.leverage.rates: %w", err)
			}
			lev.Schedule = sched
		}
		out = append(out, lev)
	}
	return out, nil
}

// Options converts the backtest section into engine options using cm.
func (b BacktestConfig) Options(cm cost.Model) (backtest.Options, error) {
	start, err := parseDate(b.Start)
	if err != nil {
		return backtest.Options{}, fmt.Errorf("backtest.start: %w", err)
	}
	end, err := parseDate(b.End)
	if err != nil {
		return backtest.Options{}, fmt.Errorf("backtest.end: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return backtest.Options{}, errors.New("backtest.end must not be before backtest.start")
	}
	if b.InitialCash <= 0 {
		return backtest.Options{}, errors.New("backtest.initial_cash must be > 0")
	}
	freq, err := backtest.ParseFrequency(b.Frequency)
	if err != nil {
		return backtest.Options{}, err
	}
	axis, err := model.ParseDateAxis(b.Axis)
	if err != nil {
		return backtest.Options{}, err
	}
	return backtest.Options{
		Start:       start,
		End:         end,
		InitialCash: decimal.NewFromFloat(b.InitialCash),
		Frequency:   freq,
		Cost:        cm,
		Axis:        axis,
		UseAdjusted: b.UseAdjusted,
	}, nil
}

// EngineOptions builds the full engine options of c, cost model included.
func (c *Config) EngineOptions() (backtest.Options, error) {
	cm, err := c.Cost.Model()
	if err != nil {
		return backtest.Options{}, err
	}
	return c.Backtest.Options(cm)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

type costFileWrapper struct {
	Cost CostConfig `yaml:"cost"`
}

// LoadCostFile reads the cost section of a standalone cost YAML.
func LoadCostFile(path string) (CostConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CostConfig{}, err
	}
	var w costFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return CostConfig{}, err
	}
	return w.Cost, nil
}

// MergeCost overlays non-zero fields from override onto base.
func MergeCost(base, override CostConfig) CostConfig {
	out := base
	if override.FlatBps != 0 {
		out.FlatBps = override.FlatBps
	}
	if override.ImpactCoefficient != 0 {
		out.ImpactCoefficient = override.ImpactCoefficient
	}
	if override.HoldingAnnualRate != 0 {
		out.HoldingAnnualRate = override.HoldingAnnualRate
	}
	if override.Leverage.Enabled {
		out.Leverage.Enabled = true
	}
	if override.Leverage.ExpenseRatio != 0 {
		out.Leverage.ExpenseRatio = override.Leverage.ExpenseRatio
	}
	if len(override.Leverage.Rates) > 0 {
		out.Leverage.Rates = override.Leverage.Rates
	}
	if len(override.Leverage.Registry) > 0 {
		merged := make(map[string]float64, len(base.Leverage.Registry)+len(override.Leverage.Registry))
		for k, v := range base.Leverage.Registry {
			merged[k] = v
		}
		for k, v := range override.Leverage.Registry {
			merged[k] = v
		}
		out.Leverage.Registry = merged
	}
	return out
}

// Merge overlays the non-zero fields of override onto base and returns the
// result. Neither argument is modified.
func Merge(base, override *Config) *Config {
	out := *base
	if override.DataDir != "" {
		out.DataDir = override.DataDir
	}
	if len(override.Symbols) > 0 {
		out.Symbols = override.Symbols
	}
	out.Cost = MergeCost(base.Cost, override.Cost)
	if override.Strategy.Name != "" {
		out.Strategy = override.Strategy
	}

	b, o := &out.Backtest, override.Backtest
	if o.Start != "" {
		b.Start = o.Start
	}
	if o.End != "" {
		b.End = o.End
	}
	if o.InitialCash != 0 {
		b.InitialCash = o.InitialCash
	}
	if o.Frequency != "" {
		b.Frequency = o.Frequency
	}
	if o.Axis != "" {
		b.Axis = o.Axis
	}
	if o.UseAdjusted {
		b.UseAdjusted = true
	}
	if o.RiskFreeRate != 0 {
		b.RiskFreeRate = o.RiskFreeRate
	}

	mc, om := &out.MonteCarlo, override.MonteCarlo
	if om.Runs != 0 {
		mc.Runs = om.Runs
	}
	if om.WindowDays != 0 {
		mc.WindowDays = om.WindowDays
	}
	if om.Seed != 0 {
		mc.Seed = om.Seed
	}
	if om.Workers != 0 {
		mc.Workers = om.Workers
	}
	if override.Storage.SQLitePath != "" {
		out.Storage.SQLitePath = override.Storage.SQLitePath
	}
	return &out
}
