// Package api wires the HTTP handlers of the backtest service into a gin
// router.
package api

import (
	"log"
	"os"
	"strconv"
	"time"

	"portfolio-backtest/internal/api/handlers"
	"portfolio-backtest/internal/api/middleware"
	"portfolio-backtest/internal/storage"

	"github.com/gin-gonic/gin"
)

// Settings is the environment-driven configuration of the API process.
type Settings struct {
	Port       string        // API_PORT, default 8080
	Production bool          // API_ENV=production
	DataDir    string        // DATA_DIR, default ./data
	ResultsDB  string        // RESULTS_DB, empty disables persistence
	ConfigDir  string        // CONFIG_DIR, default ./configs
	CacheTTL   time.Duration // CACHE_TTL, default 15m, 0 disables the cache
	PriceURL   string        // PRICE_API_URL, default for remote data sources
}

// SettingsFromEnv reads Settings from the process environment.
func SettingsFromEnv() (Settings, error) {
	s := Settings{
		Port:       getenv("API_PORT", "8080"),
		Production: os.Getenv("API_ENV") == "production",
		DataDir:    getenv("DATA_DIR", "./data"),
		ResultsDB:  os.Getenv("RESULTS_DB"),
		ConfigDir:  getenv("CONFIG_DIR", "./configs"),
		CacheTTL:   15 * time.Minute,
		PriceURL:   os.Getenv("PRICE_API_URL"),
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			// Plain integers are seconds.
			secs, convErr := strconv.Atoi(v)
			if convErr != nil {
				return s, err
			}
			ttl = time.Duration(secs) * time.Second
		}
		s.CacheTTL = ttl
	}
	return s, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// NewRouter builds the router with every route mounted. store and cache may
// be nil.
func NewRouter(s Settings, store *storage.Store, cache *storage.ResultCache) *gin.Engine {
	if s.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply middleware
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	// Initialize handlers
	configHandler := handlers.NewConfigHandler(s.ConfigDir)
	backtestHandler := handlers.NewBacktestHandler(store, cache, s.DataDir, configHandler.ConfigDir(), s.PriceURL)
	strategyHandler := handlers.NewStrategyHandler()
	datasetHandler := handlers.NewDatasetHandler(s.DataDir)
	rankHandler := handlers.NewRankHandler(store, cache)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"storage": store != nil,
			"cache":   cache != nil,
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/backtest", backtestHandler.RunBacktest)
		api.POST("/backtest/compare", backtestHandler.CompareBacktests)
		api.POST("/backtest/montecarlo", backtestHandler.MonteCarlo)
		api.GET("/backtest/:id", backtestHandler.GetBacktest)
		api.DELETE("/backtest/:id", backtestHandler.DeleteBacktest)
		api.GET("/backtest/:id/ledger", backtestHandler.GetLedger)
		api.GET("/backtest/:id/chart", backtestHandler.GetChart)
		api.GET("/backtests", backtestHandler.ListBacktests)

		api.GET("/strategies", strategyHandler.ListStrategies)
		api.GET("/datasets", datasetHandler.ListDatasets)
		api.GET("/configs", configHandler.ListConfigs)

		api.POST("/rank", rankHandler.RankResults)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})

	log.Printf("[API] data dir %s, config dir %s, results db %q, cache ttl %v", s.DataDir, configHandler.ConfigDir(), s.ResultsDB, s.CacheTTL)
	return router
}
