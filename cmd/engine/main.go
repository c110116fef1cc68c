package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/alerting"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/config"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/engine"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/logger"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/persist"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/scheduler"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/thresholds"
)

func main() {
	cfg := config.Parse()
	logger.Init(cfg.LogFormat, logger.ParseLevel(cfg.LogLevel))

	catalog, err := thresholds.Load(cfg.ThresholdsPath)
	if err != nil {
		log.Fatalf("Failed to load threshold catalog: %v", err)
	}

	// Create the persistence gateway
	var gateway *persist.Gateway

	switch cfg.Storage {
	case config.StorageFile:
		gateway = persist.NewGateway(persist.NewFileBackend(cfg.StateFile), nil)
		logger.Info("using file storage", "path", cfg.StateFile)
	default:
		store, err := persist.NewSQLiteBackend(cfg.SQLitePath, cfg.BatchSize, cfg.Retention)
		if err != nil {
			log.Fatalf("Failed to open SQLite storage: %v", err)
		}
		gateway = persist.NewGateway(store, persist.NewFileBackend(cfg.StateFile))
		logger.Info("using SQLite storage", "path", cfg.SQLitePath, "fallback", cfg.StateFile)
	}
	defer gateway.Close()

	eng := engine.New(catalog, gateway, engine.Options{
		Retention:   cfg.Retention,
		MaxReadings: cfg.MaxReadings,
		TopCritical: cfg.TopCritical,
	})

	dispatcher := alerting.NewDispatcher(alerting.LogNotifier{}, cfg.AlertTTL)
	sched := scheduler.New(eng, dispatcher, cfg.AnalysisInterval, cfg.CleanupInterval, cfg.InactiveDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sched.Run(ctx)

	logger.Info("engine started",
		"trucks", eng.TruckCount(),
		"analysisInterval", cfg.AnalysisInterval.String(),
		"retention", cfg.Retention.String(),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	if err := eng.Save(); err != nil {
		logger.Warn("final save failed", "error", err)
	}
	if err := eng.Flush(); err != nil {
		logger.Warn("final flush failed", "error", err)
	}

	logger.Info("engine stopped")
}
