package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	httpadapter "github.com/mkuzmin/askdoc/internal/adapters/http"
	"github.com/mkuzmin/askdoc/internal/bootstrap"
	"github.com/mkuzmin/askdoc/internal/config"
	"github.com/mkuzmin/askdoc/internal/observability/logging"
	"github.com/mkuzmin/askdoc/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger("askdoc-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close(context.Background())

	m := metrics.NewHTTPServerMetrics("askdoc-api")
	limiter := rate.NewLimiter(rate.Limit(cfg.HTTPRateLimitPerSecond), cfg.HTTPRateLimitBurst)

	router := httpadapter.NewRouter(app.AskUC, app.IngestUC, app.Repo, m, limiter)
	handler, err := router.Handler()
	if err != nil {
		slog.Error("build handler", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("listen", "addr", server.Addr, "error", err)
		os.Exit(1)
	}
	listener = netutil.LimitListener(listener, cfg.HTTPMaxConnections)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api_listening", "addr", server.Addr, "max_connections", cfg.HTTPMaxConnections)
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown_signal_received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("api_stopped")
}
