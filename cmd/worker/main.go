package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkuzmin/askdoc/internal/bootstrap"
	"github.com/mkuzmin/askdoc/internal/config"
	"github.com/mkuzmin/askdoc/internal/observability/logging"
	"github.com/mkuzmin/askdoc/internal/observability/metrics"
)

const (
	serviceName    = "askdoc-worker"
	processTimeout = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close(context.Background())

	m := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsHandler(m),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", "error", err)
		}
	}()

	slog.Info("worker_started", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(msgCtx context.Context, documentID string) error {
		return processDocument(msgCtx, app, m, documentID)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("subscription", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown", "error", err)
	}
	slog.Info("worker_stopped")
}

func processDocument(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	if doc, err := app.Repo.GetByID(ctx, documentID); err == nil {
		m.ObserveQueueLag(serviceName, time.Since(doc.CreatedAt))
	}

	m.StartDocument()
	started := time.Now()

	err := app.ProcessUC.ProcessByID(ctx, documentID)
	m.FinishDocument(serviceName, time.Since(started), err)

	if err != nil {
		slog.Error("document_processing_failed", "document_id", documentID, "error", err)
		return err
	}
	slog.Info("document_processed", "document_id", documentID, "duration_ms", time.Since(started).Milliseconds())
	return nil
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
