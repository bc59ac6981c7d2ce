package handlers

import (
	"net/http"

	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/strategy"

	"github.com/gin-gonic/gin"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct {
	strategies []models.StrategyInfo
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	infos := strategy.Descriptions()
	out := make([]models.StrategyInfo, 0, len(infos))
	for _, info := range infos {
		params := make([]models.ParameterInfo, 0, len(info.Parameters))
		for _, p := range info.Parameters {
			params = append(params, models.ParameterInfo{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Default:     p.Default,
			})
		}
		out = append(out, models.StrategyInfo{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  params,
		})
	}
	return &StrategyHandler{strategies: out}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": h.strategies})
}
