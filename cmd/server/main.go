package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Leolion08/ctom-sub000/internal/api"
	"github.com/Leolion08/ctom-sub000/internal/config"
	"github.com/Leolion08/ctom-sub000/internal/importer"
	"github.com/Leolion08/ctom-sub000/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open stores.
	templates, err := store.OpenTemplates(filepath.Join(cfg.DataDir, "templates"))
	if err != nil {
		log.Error("failed to open template store", "error", err)
		os.Exit(1)
	}
	customers, err := store.OpenCustomers(filepath.Join(cfg.DataDir, "customers"))
	if err != nil {
		log.Error("failed to open customer store", "error", err)
		os.Exit(1)
	}

	// Initialize import pipeline.
	imports := importer.NewOrchestrator(customers, log, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL)
	imports.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(templates, customers, imports, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		imports.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting tplmap", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
