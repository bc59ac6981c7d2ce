package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-backtest/internal/api"
	"portfolio-backtest/internal/storage"
)

func main() {
	// Get configuration from environment
	settings, err := api.SettingsFromEnv()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	if wd, err := os.Getwd(); err == nil {
		log.Printf("Working directory: %s", wd)
	}
	if info, err := os.Stat(settings.DataDir); err != nil || !info.IsDir() {
		log.Printf("Data directory not found at: %s (error: %v)", settings.DataDir, err)
	}

	var store *storage.Store
	if settings.ResultsDB != "" {
		store, err = storage.Open(settings.ResultsDB)
		if err != nil {
			log.Fatalf("Failed to open results database: %v", err)
		}
		defer store.Close()
		log.Printf("Persisting results to %s", settings.ResultsDB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := storage.NewResultCache(settings.CacheTTL)
	if cache != nil {
		go cache.Run(ctx, time.Minute)
	}

	router := api.NewRouter(settings, store, cache)

	// Start server
	addr := fmt.Sprintf(":%s", settings.Port)
	log.Printf("Starting API server on %s", addr)
	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	<-ctx.Done()
	log.Printf("Shutting down")
}
