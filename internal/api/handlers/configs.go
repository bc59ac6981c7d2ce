package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/config"

	"github.com/gin-gonic/gin"
)

// ConfigHandler lists the configuration presets a backtest can name in
// config_file
type ConfigHandler struct {
	configDir string
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(dir string) *ConfigHandler {
	if absDir, err := filepath.Abs(dir); err == nil {
		dir = absDir
	}
	log.Printf("[API] using config directory: %s", dir)
	return &ConfigHandler{configDir: dir}
}

// ConfigDir returns the directory presets are read from
func (h *ConfigHandler) ConfigDir() string {
	return h.configDir
}

// ListConfigs handles GET /api/v1/configs
func (h *ConfigHandler) ListConfigs(c *gin.Context) {
	presets := []models.ConfigInfo{}

	entries, err := os.ReadDir(h.configDir)
	if err != nil {
		log.Printf("[API] failed to read config directory %s: %v", h.configDir, err)
		c.JSON(http.StatusOK, gin.H{"configs": presets})
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(h.configDir, name)
		cfg, err := config.LoadUnchecked(path)
		if err != nil {
			log.Printf("[API] skipping config %s: %v", path, err)
			continue
		}
		id := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		presets = append(presets, models.ConfigInfo{
			ID:       id,
			Name:     id,
			File:     name,
			Strategy: cfg.Strategy.Name,
			Symbols:  cfg.Symbols,
		})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })

	c.JSON(http.StatusOK, gin.H{"configs": presets})
}
