package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/fkbarrett/urldemo/internal/api"
	"github.com/fkbarrett/urldemo/internal/logs"
	"github.com/fkbarrett/urldemo/internal/metrics"
	"github.com/fkbarrett/urldemo/internal/shortener"
	"github.com/fkbarrett/urldemo/internal/store"
	"github.com/fkbarrett/urldemo/internal/sweep"
)

func main() {
	// Config
	addr := envString("LISTEN_ADDR", ":8080")
	staticDir := envString("STATIC_DIR", "web/static")
	defaultTTL := time.Duration(envInt("DEFAULT_TTL_HOURS", 0)) * time.Hour
	sweepInterval := time.Duration(envInt("SWEEP_INTERVAL_SECONDS", 300)) * time.Second
	logLevel := logs.ParseLevel(envString("LOG_LEVEL", "INFO"))

	// Logger
	logger := logs.NewLogger(1000, logLevel)

	// Metrics
	metricsRegistry := metrics.NewRegistry()

	// Store + token mapper
	urlStore := store.NewMemoryStore(defaultTTL, metricsRegistry)
	mapper := shortener.NewMapper(urlStore, metricsRegistry)

	// Background sweeper
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweeper := sweep.NewSweeper(urlStore, sweepInterval, logger, metricsRegistry)
	go sweeper.Start(ctx)

	// API
	handler := api.NewHandler(mapper, urlStore, metricsRegistry, logger, staticDir)
	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(handler),
	}

	go func() {
		logger.Info("server started on " + addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("ignoring invalid %s=%q", key, v)
		return fallback
	}
	return parsed
}
