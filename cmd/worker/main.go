package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/northbridge-ai/diligence/internal/bootstrap"
	"github.com/northbridge-ai/diligence/internal/config"
	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/observability/logging"
	"github.com/northbridge-ai/diligence/internal/observability/metrics"
)

const runTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestRequests(ctx, func(handlerCtx context.Context, req domain.IngestRequest) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, runTimeout)
		defer cancel()

		start := time.Now()
		workerMetrics.StartRun()
		logger.Info("ingest_run_started", "run_id", req.RunID, "root", req.Root, "recursive", req.Recursive)

		stats, runErr := app.Pipeline.IngestDirectory(runCtx, req.Root, req.Recursive)
		workerMetrics.FinishRun("worker", time.Since(start), stats, runErr)

		status := domain.RunStatusSucceeded
		if runErr != nil {
			status = domain.RunStatusFailed
			logger.Error("ingest_run_failed", "run_id", req.RunID, "error", runErr)
		}

		if err := app.Runs.FinishRun(runCtx, req.RunID, status, stats); err != nil {
			logger.Error("finish_run_failed", "run_id", req.RunID, "error", err)
		}
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
