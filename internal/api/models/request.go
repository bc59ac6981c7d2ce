package models

import "portfolio-backtest/internal/config"

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	DataSource DataSourceConfig `json:"data_source" binding:"required"`
	Config     BacktestConfig   `json:"config" binding:"required"`
	Options    BacktestOptions  `json:"options,omitempty"`
}

// DataSourceConfig defines where price series come from
type DataSourceConfig struct {
	Type      string   `json:"type,omitempty"` // "local" (default) or "remote"
	Symbols   []string `json:"symbols" binding:"required,min=1"`
	APIKey    string   `json:"api_key,omitempty"`  // remote only
	BaseURL   string   `json:"base_url,omitempty"` // remote only
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

// BacktestConfig contains strategy, cost and simulation settings. When
// ConfigFile names a preset under the config directory, the other fields
// override it.
type BacktestConfig struct {
	ConfigFile string                  `json:"config_file,omitempty"`
	CostFile   string                  `json:"cost_file,omitempty"`
	Cost       config.CostConfig       `json:"cost"`
	Strategy   config.StrategyConfig   `json:"strategy"`
	Backtest   config.BacktestConfig   `json:"backtest"`
	MonteCarlo config.MonteCarloConfig `json:"monte_carlo"`
}

// BacktestOptions contains optional response parameters
type BacktestOptions struct {
	IncludeLedger bool `json:"include_ledger,omitempty"`
	IncludeCurve  bool `json:"include_curve,omitempty"`
}

// CompareBacktestRequest runs several strategies over the same data and costs
type CompareBacktestRequest struct {
	DataSource DataSourceConfig    `json:"data_source" binding:"required"`
	BaseConfig BacktestConfig      `json:"base_config"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1"`
}

// BacktestVariation names one strategy to compare
type BacktestVariation struct {
	Name     string                `json:"name" binding:"required"`
	Strategy config.StrategyConfig `json:"strategy" binding:"required"`
}

// MonteCarloRequest runs one strategy over randomly drawn windows
type MonteCarloRequest struct {
	DataSource DataSourceConfig `json:"data_source" binding:"required"`
	Config     BacktestConfig   `json:"config" binding:"required"`
}

// RankRequest ranks stored results by one metric
type RankRequest struct {
	IDs          []string `json:"ids" binding:"required,min=1"`
	Metric       string   `json:"metric,omitempty"` // default: sharpe
	RiskFreeRate float64  `json:"risk_free_rate,omitempty"`
}
