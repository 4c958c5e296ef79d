package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/riskibarqy/sportsync/internal/app"
	"github.com/riskibarqy/sportsync/internal/config"
	"github.com/riskibarqy/sportsync/internal/observability"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init tracing", "error", err)
		os.Exit(1)
	}

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init profiler", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := application.Orchestrator.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("sync orchestrator stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runReconciliationLoop(ctx, application, cfg.ReconciliationInterval, logger)
	}()

	logger.Info("worker started",
		"reconciliationInterval", cfg.ReconciliationInterval.String(),
	)

	<-ctx.Done()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if stopProfiler != nil {
		_ = stopProfiler()
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("shutdown tracing", "error", err)
		}
	}

	logger.Info("worker stopped")
}

func runReconciliationLoop(ctx context.Context, application *app.App, interval time.Duration, logger *logging.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := application.Reconciliation.Run(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "reconciliation sweep failed", "error", err)
				continue
			}
			logger.InfoContext(ctx, "reconciliation sweep done",
				"gamesMerged", report.GamesMerged,
				"playersMerged", report.PlayersMerged,
				"skipped", report.Skipped,
			)
		}
	}
}
