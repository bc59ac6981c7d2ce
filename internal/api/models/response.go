package models

import (
	"time"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"
	"portfolio-backtest/internal/storage"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Summary BacktestSummary `json:"summary"`
	// Metrics carries every risk statistic of the equity curve
	Metrics      risk.Summary           `json:"metrics"`
	Metadata     map[string]string      `json:"metadata,omitempty"`
	Ledger       []model.Transaction    `json:"ledger,omitempty"`
	EquityCurve  []backtest.EquityPoint `json:"equity_curve,omitempty"`
	CachedResult bool                   `json:"cached_result,omitempty"`
}

// BacktestSummary contains the headline numbers of a run
type BacktestSummary struct {
	StrategyName        string     `json:"strategy_name"`
	BacktestWindow      TimeWindow `json:"backtest_window"`
	InitialValue        string     `json:"initial_value"`
	FinalValue          string     `json:"final_value"`
	TotalReturnPct      float64    `json:"total_return_pct"`
	AnnualizedReturnPct float64    `json:"annualized_return_pct"`
	TotalPoints         int        `json:"total_points"`
	TotalTransactions   int        `json:"total_transactions"`
	TotalCost           string     `json:"total_cost"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string          `json:"name"`
	ID      string          `json:"id"`
	Summary BacktestSummary `json:"summary"`
	Metrics risk.Summary    `json:"metrics"`
}

// MonteCarloResponse summarises a batch of runs over random windows
type MonteCarloResponse struct {
	StrategyName string `json:"strategy_name"`
	WindowDays   int    `json:"window_days"`
	Seed         int64  `json:"seed"`
	analysis.MonteCarlo
}

// ResultListResponse lists stored results, newest first
type ResultListResponse struct {
	Results []storage.ResultSummary `json:"results"`
}

// RankResponse represents the response from ranking results
type RankResponse struct {
	Metric   analysis.Metric   `json:"metric"`
	Rankings []analysis.Ranked `json:"rankings"`
	Missing  []string          `json:"missing,omitempty"`
}

// ConfigInfo represents information about a configuration preset
type ConfigInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Strategy string   `json:"strategy"`
	Symbols  []string `json:"symbols,omitempty"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "bool", "string", "weights", "symbols"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// DatasetInfo represents one price file available to backtests
type DatasetInfo struct {
	Symbol  string                `json:"symbol"`
	Format  string                `json:"format"`
	Size    int64                 `json:"size"`
	ModTime time.Time             `json:"mod_time"`
	Stats   *analysis.SeriesStats `json:"stats,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
