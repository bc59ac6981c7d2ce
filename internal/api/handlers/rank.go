package handlers

import (
	"errors"
	"net/http"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/storage"

	"github.com/gin-gonic/gin"
)

// RankHandler orders stored backtests by a risk metric
type RankHandler struct {
	results
}

// NewRankHandler creates a new rank handler
func NewRankHandler(store *storage.Store, cache *storage.ResultCache) *RankHandler {
	return &RankHandler{results: results{store: store, cache: cache}}
}

// RankResults handles POST /api/v1/rank
func (h *RankHandler) RankResults(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	metric, err := analysis.ParseMetric(req.Metric)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_METRIC", err.Error(), map[string]interface{}{
			"metrics": analysis.Metrics,
		})
		return
	}

	found := make([]*backtest.Result, 0, len(req.IDs))
	var missing []string
	for _, id := range req.IDs {
		r, err := h.lookup(id)
		if errors.Is(err, storage.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error(), nil)
			return
		}
		found = append(found, r)
	}
	if len(found) == 0 {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "none of the requested backtests exist", map[string]interface{}{
			"missing": missing,
		})
		return
	}

	c.JSON(http.StatusOK, models.RankResponse{
		Metric:   metric,
		Rankings: analysis.Rank(found, metric, riskOptionsFromRate(req.RiskFreeRate)),
		Missing:  missing,
	})
}
