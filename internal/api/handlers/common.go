package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/risk"
	"portfolio-backtest/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// metaRiskFree is the result metadata key holding the risk-free rate used
// when the run's metrics are recomputed later.
const metaRiskFree = "risk_free_rate"

func abortWithError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// results finds stored runs in the cache first, then in SQLite.
type results struct {
	store *storage.Store
	cache *storage.ResultCache
}

func (r results) lookup(id string) (*backtest.Result, error) {
	if res, ok := r.cache.Get(id); ok {
		return res, nil
	}
	if r.store == nil {
		return nil, storage.ErrNotFound
	}
	res, err := r.store.GetResult(id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(id, res)
	return res, nil
}

// remember keeps r in the cache under its ID and every extra key, and
// persists it when a store is configured.
func (r results) remember(res *backtest.Result, keys ...string) {
	r.cache.Set(res.ID, res)
	for _, k := range keys {
		r.cache.Set(k, res)
	}
	if r.store == nil {
		return
	}
	if err := r.store.SaveResult(res); err != nil {
		log.Printf("[API] failed to persist result %s: %v", res.ID, err)
	}
}

// writeLookupError answers a failed result lookup.
func writeLookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no backtest with id %s", id), nil)
		return
	}
	abortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error(), nil)
}

// resolver turns request bodies into validated configurations and price data.
type resolver struct {
	dataDir   string
	configDir string
	priceURL  string
}

// resolveConfig loads the optional preset and cost file, overlays the
// request on top and validates the outcome.
func (r resolver) resolveConfig(req models.BacktestConfig, ds models.DataSourceConfig) (*config.Config, error) {
	base := &config.Config{}
	if req.ConfigFile != "" {
		name := filepath.Base(req.ConfigFile)
		if filepath.Ext(name) == "" {
			name += ".yaml"
		}
		loaded, err := config.LoadUnchecked(filepath.Join(r.configDir, name))
		if err != nil {
			return nil, fmt.Errorf("config_file %s: %w", req.ConfigFile, err)
		}
		base = loaded
	}
	if req.CostFile != "" {
		loaded, err := config.LoadCostFile(filepath.Join(r.configDir, filepath.Clean("/"+req.CostFile)))
		if err != nil {
			return nil, fmt.Errorf("cost_file %s: %w", req.CostFile, err)
		}
		base.Cost = config.MergeCost(base.Cost, loaded)
	}

	cfg := config.Merge(base, &config.Config{
		Cost:       req.Cost,
		Strategy:   req.Strategy,
		Backtest:   req.Backtest,
		MonteCarlo: req.MonteCarlo,
	})
	if cfg.Backtest.Start == "" {
		cfg.Backtest.Start = ds.StartDate
	}
	if cfg.Backtest.End == "" {
		cfg.Backtest.End = ds.EndDate
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// engineInputs builds the engine options of cfg, tagging the run with its
// risk-free rate.
func engineInputs(cfg *config.Config) (backtest.Options, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return backtest.Options{}, err
	}
	opts.Metadata = map[string]string{metaRiskFree: strconv.FormatFloat(cfg.Backtest.RiskFreeRate, 'f', -1, 64)}
	return opts, nil
}

// loadData reads the requested symbols from the data directory or downloads
// them from the price service.
func (r resolver) loadData(ctx context.Context, ds models.DataSourceConfig) (*model.PriceData, error) {
	switch strings.ToLower(ds.Type) {
	case "", "local":
		if r.dataDir == "" {
			return nil, errors.New("no data directory configured")
		}
		return data.Load(r.dataDir, ds.Symbols...)
	case "remote":
		baseURL := ds.BaseURL
		if baseURL == "" {
			baseURL = r.priceURL
		}
		start, err := data.ParseDate(ds.StartDate)
		if ds.StartDate != "" && err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
		end, err := data.ParseDate(ds.EndDate)
		if ds.EndDate != "" && err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		client := data.NewPriceClient(ds.APIKey, baseURL)
		series := make([]*model.PriceSeries, 0, len(ds.Symbols))
		for _, sym := range ds.Symbols {
			s, err := client.Fetch(ctx, sym, start, end)
			if err != nil {
				return nil, err
			}
			series = append(series, s)
		}
		return model.NewPriceData(series...)
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", ds.Type)
	}
}

func writeDataError(c *gin.Context, err error) {
	var apiErr *data.APIError
	if errors.As(err, &apiErr) {
		statusCode := http.StatusBadRequest
		if apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized {
			statusCode = http.StatusUnauthorized
		} else if apiErr.StatusCode == http.StatusTooManyRequests {
			statusCode = http.StatusTooManyRequests
		} else if apiErr.StatusCode == http.StatusNotFound {
			statusCode = http.StatusNotFound
		}
		abortWithError(c, statusCode, apiErr.Code, apiErr.Message, map[string]interface{}{
			"status_code": apiErr.StatusCode,
			"retry_after": apiErr.RetryAfter,
		})
		return
	}
	if errors.Is(err, data.ErrUnknownSymbol) {
		abortWithError(c, http.StatusNotFound, "UNKNOWN_SYMBOL", err.Error(), nil)
		return
	}
	abortWithError(c, http.StatusBadRequest, "DATA_FETCH_ERROR", err.Error(), nil)
}

func writeRunError(c *gin.Context, err error) {
	if errors.Is(err, backtest.ErrEmptyDateRange) || errors.Is(err, backtest.ErrInvalidOptions) || errors.Is(err, model.ErrInvalidAllocation) {
		abortWithError(c, http.StatusUnprocessableEntity, "INVALID_BACKTEST", err.Error(), nil)
		return
	}
	abortWithError(c, http.StatusInternalServerError, "BACKTEST_ERROR", err.Error(), nil)
}

// riskOptions recovers the risk settings a result was produced with.
func riskOptions(r *backtest.Result) risk.Options {
	if v, ok := r.Metadata[metaRiskFree]; ok {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			return riskOptionsFromRate(rate)
		}
	}
	return risk.Options{}
}

func riskOptionsFromRate(rate float64) risk.Options {
	return risk.Options{RiskFreeRate: rate}
}

func buildSummary(r *backtest.Result) models.BacktestSummary {
	total := decimal.Zero
	for _, tx := range r.Transactions {
		total = total.Add(tx.Cost)
	}
	return models.BacktestSummary{
		StrategyName:        r.StrategyName,
		BacktestWindow:      models.TimeWindow{Start: r.StartDate, End: r.EndDate},
		InitialValue:        r.InitialValue.StringFixed(2),
		FinalValue:          r.FinalValue.StringFixed(2),
		TotalReturnPct:      r.TotalReturnPct,
		AnnualizedReturnPct: r.AnnualizedReturnPct,
		TotalPoints:         len(r.EquityCurve),
		TotalTransactions:   len(r.Transactions),
		TotalCost:           total.StringFixed(2),
	}
}

func buildResponse(r *backtest.Result, includeLedger, includeCurve bool) models.BacktestResponse {
	resp := models.BacktestResponse{
		ID:       r.ID,
		Status:   "completed",
		Summary:  buildSummary(r),
		Metrics:  r.Metrics(riskOptions(r)),
		Metadata: r.Metadata,
	}
	if includeLedger {
		resp.Ledger = r.Transactions
	}
	if includeCurve {
		resp.EquityCurve = r.EquityCurve
	}
	return resp
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
