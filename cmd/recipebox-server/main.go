// Package main provides the HTTP JSON API server for recipebox.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/recipebox/internal/config"
	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/server"
	"github.com/raphaelgruber/recipebox/internal/service"
)

const version = "0.1.0"

func main() {
	backend := flag.String("backend", "", "storage backend (overrides RECIPEBOX_BACKEND)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *backend != "" {
		cfg.Backend = *backend
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = cleanup() }()

	logger.Info("recipebox-server starting",
		"version", version,
		"port", cfg.ServerPort,
		"backend", cfg.Backend,
		"storage_key", cfg.StorageKey,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	kv, err := db.Open(ctx, cfg.DBOptions(logger))
	cancel()
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	collector := metrics.NewCollector()
	store := service.NewRecipeStore(context.Background(), kv, service.StoreOptions{
		Key:      cfg.StorageKey,
		Location: cfg.Location(),
		Locale:   cfg.Locale,
		Logger:   logger,
		Metrics:  collector,
	})
	codec := imaging.New(cfg.ImageMaxWidth, cfg.ImageQuality, logger)
	saver := service.NewSaver(store, codec, logger, collector)
	srv := server.New(store, saver, collector, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second, // Long for image uploads
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s/recipes", cfg.ServerPort), "recipes", store.Len())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
