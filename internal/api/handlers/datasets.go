package handlers

import (
	"log"
	"net/http"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/data"

	"github.com/gin-gonic/gin"
)

// DatasetHandler lists the price files under the data directory
type DatasetHandler struct {
	dataDir string
}

func NewDatasetHandler(dataDir string) *DatasetHandler {
	return &DatasetHandler{dataDir: dataDir}
}

// ListDatasets handles GET /api/v1/datasets
//
// With stats=true every file is parsed and summarised, which reads the whole
// data directory.
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	datasets := []models.DatasetInfo{}
	if h.dataDir == "" {
		c.JSON(http.StatusOK, gin.H{"datasets": datasets})
		return
	}

	found, err := data.Discover(h.dataDir)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "DATASETS_LOAD_ERROR", err.Error(), nil)
		return
	}
	withStats := queryBool(c, "stats")
	adjusted := queryBool(c, "adjusted")
	for _, ds := range found {
		info := models.DatasetInfo{
			Symbol:  ds.Symbol,
			Format:  ds.Format,
			Size:    ds.Size,
			ModTime: ds.ModTime,
		}
		if withStats {
			s, err := data.LoadFile(ds.Path)
			if err != nil {
				log.Printf("[API] skipping stats for %s: %v", ds.Path, err)
			} else {
				st := analysis.ComputeSeriesStats(s, adjusted)
				info.Stats = &st
			}
		}
		datasets = append(datasets, info)
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}
