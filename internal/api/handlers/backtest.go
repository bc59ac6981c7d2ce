package handlers

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"time"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/report"
	"portfolio-backtest/internal/storage"
	"portfolio-backtest/internal/strategy"

	"github.com/gin-gonic/gin"
)

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	engine *backtest.Engine
	results
	resolver
}

// NewBacktestHandler creates a new backtest handler. store and cache may be
// nil; without a store, results only live as long as the cache keeps them.
func NewBacktestHandler(store *storage.Store, cache *storage.ResultCache, dataDir, configDir, priceURL string) *BacktestHandler {
	return &BacktestHandler{
		engine:   backtest.New(),
		results:  results{store: store, cache: cache},
		resolver: resolver{dataDir: dataDir, configDir: configDir, priceURL: priceURL},
	}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	cfg, err := h.resolveConfig(req.Config, req.DataSource)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}

	key := storage.CacheKey(struct {
		DataSource models.DataSourceConfig
		Config     interface{}
	}{req.DataSource, cfg})
	if cached, ok := h.cache.Get(key); ok {
		resp := buildResponse(cached, req.Options.IncludeLedger, req.Options.IncludeCurve)
		resp.CachedResult = true
		c.JSON(http.StatusOK, resp)
		return
	}

	policy, err := cfg.Strategy.Policy()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error(), nil)
		return
	}
	opts, err := engineInputs(cfg)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}

	started := time.Now()
	prices, err := h.loadData(c.Request.Context(), req.DataSource)
	if err != nil {
		writeDataError(c, err)
		return
	}

	result, err := h.engine.Run(prices, policy, opts)
	if err != nil {
		writeRunError(c, err)
		return
	}
	h.remember(result, key)
	log.Printf("[API] backtest %s (%s) finished in %s", result.ID, result.StrategyName, since(started))

	c.JSON(http.StatusOK, buildResponse(result, req.Options.IncludeLedger, req.Options.IncludeCurve))
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	// The base strategy only has to pass validation; variations replace it.
	if req.BaseConfig.Strategy.Name == "" {
		req.BaseConfig.Strategy = req.Variations[0].Strategy
	}
	cfg, err := h.resolveConfig(req.BaseConfig, req.DataSource)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}

	policies := make(map[string]strategy.Policy, len(req.Variations))
	for _, v := range req.Variations {
		if _, dup := policies[v.Name]; dup {
			abortWithError(c, http.StatusBadRequest, "DUPLICATE_VARIATION", fmt.Sprintf("variation %q appears twice", v.Name), nil)
			return
		}
		p, err := strategy.Build(v.Strategy.Name, v.Strategy.Params)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error(), map[string]interface{}{"variation": v.Name})
			return
		}
		policies[v.Name] = p
	}

	opts, err := engineInputs(cfg)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}
	prices, err := h.loadData(c.Request.Context(), req.DataSource)
	if err != nil {
		writeDataError(c, err)
		return
	}

	runs, err := h.engine.CompareStrategies(c.Request.Context(), prices, policies, opts, cfg.MonteCarlo.Workers)
	if err != nil {
		writeRunError(c, err)
		return
	}

	names := make([]string, 0, len(runs))
	for name := range runs {
		names = append(names, name)
	}
	sort.Strings(names)
	comparison := make([]models.ComparisonResult, 0, len(names))
	for _, name := range names {
		r := runs[name]
		h.remember(r)
		comparison = append(comparison, models.ComparisonResult{
			Name:    name,
			ID:      r.ID,
			Summary: buildSummary(r),
			Metrics: r.Metrics(riskOptions(r)),
		})
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{
		Comparison: comparison,
	})
}

// MonteCarlo handles POST /api/v1/backtest/montecarlo
func (h *BacktestHandler) MonteCarlo(c *gin.Context) {
	var req models.MonteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	cfg, err := h.resolveConfig(req.Config, req.DataSource)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}
	policy, err := cfg.Strategy.Policy()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error(), nil)
		return
	}
	opts, err := engineInputs(cfg)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}
	prices, err := h.loadData(c.Request.Context(), req.DataSource)
	if err != nil {
		writeDataError(c, err)
		return
	}

	seed := cfg.MonteCarlo.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	dates := prices.Dates(opts.Axis, opts.Start, opts.End)
	windows, err := data.RandomWindows(dates, cfg.MonteCarlo.WindowDays, cfg.MonteCarlo.Runs, rand.New(rand.NewSource(seed)))
	if err != nil {
		abortWithError(c, http.StatusUnprocessableEntity, "INVALID_WINDOW", err.Error(), map[string]interface{}{
			"available_dates": len(dates),
			"window_days":     cfg.MonteCarlo.WindowDays,
		})
		return
	}

	started := time.Now()
	runs, err := h.engine.RunBatch(c.Request.Context(), prices, policy, windows, opts, cfg.MonteCarlo.Workers)
	if err != nil {
		writeRunError(c, err)
		return
	}
	log.Printf("[API] monte carlo %s: %d windows of %d days in %s", policy.Name(), len(windows), cfg.MonteCarlo.WindowDays, since(started))

	c.JSON(http.StatusOK, models.MonteCarloResponse{
		StrategyName: policy.Name(),
		WindowDays:   cfg.MonteCarlo.WindowDays,
		Seed:         seed,
		MonteCarlo:   analysis.SummarizeRuns(runs, riskOptionsFromRate(cfg.Backtest.RiskFreeRate)),
	})
}

// GetBacktest handles GET /api/v1/backtest/:id
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id := c.Param("id")
	r, err := h.lookup(id)
	if err != nil {
		writeLookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, buildResponse(r, queryBool(c, "include_ledger"), queryBool(c, "include_curve")))
}

// GetLedger handles GET /api/v1/backtest/:id/ledger
//
// format=csv streams the transactions (or, with table=equity, the equity
// curve) as CSV instead of JSON.
func (h *BacktestHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	r, err := h.lookup(id)
	if err != nil {
		writeLookupError(c, id, err)
		return
	}

	table := c.DefaultQuery("table", "transactions")
	if table != "transactions" && table != "equity" {
		abortWithError(c, http.StatusBadRequest, "INVALID_PARAM", fmt.Sprintf("unknown table %q", table), nil)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		if table == "equity" {
			c.JSON(http.StatusOK, gin.H{"id": r.ID, "equity_curve": r.EquityCurve})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": r.ID, "transactions": r.Transactions})
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.csv", r.ID, table))
		c.Status(http.StatusOK)
		if table == "equity" {
			err = backtest.WriteEquityCSV(c.Writer, r.EquityCurve)
		} else {
			err = backtest.WriteTransactionsCSV(c.Writer, r.Transactions)
		}
		if err != nil {
			log.Printf("[API] ledger %s: write csv: %v", r.ID, err)
		}
	default:
		abortWithError(c, http.StatusBadRequest, "INVALID_PARAM", "format must be json or csv", nil)
	}
}

// GetChart handles GET /api/v1/backtest/:id/chart
func (h *BacktestHandler) GetChart(c *gin.Context) {
	id := c.Param("id")
	r, err := h.lookup(id)
	if err != nil {
		writeLookupError(c, id, err)
		return
	}
	png, err := report.EquityChart(r)
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			abortWithError(c, http.StatusUnprocessableEntity, "NO_DATA", err.Error(), nil)
			return
		}
		abortWithError(c, http.StatusInternalServerError, "CHART_ERROR", err.Error(), nil)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ListBacktests handles GET /api/v1/backtests
func (h *BacktestHandler) ListBacktests(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "INVALID_PARAM", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	list := []storage.ResultSummary{}
	if h.store != nil {
		stored, err := h.store.ListResults(limit)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error(), nil)
			return
		}
		list = append(list, stored...)
	}
	c.JSON(http.StatusOK, models.ResultListResponse{Results: list})
}

// DeleteBacktest handles DELETE /api/v1/backtest/:id
func (h *BacktestHandler) DeleteBacktest(c *gin.Context) {
	id := c.Param("id")
	_, cached := h.cache.Get(id)
	// Drops the request-hash alias too, so a repeated request runs again.
	h.cache.Evict(id)
	if h.store == nil {
		if !cached {
			writeLookupError(c, id, storage.ErrNotFound)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.store.DeleteResult(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) && cached {
			c.Status(http.StatusNoContent)
			return
		}
		writeLookupError(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}
