package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/mkuzmin/askdoc/internal/adapters/mcp"
	"github.com/mkuzmin/askdoc/internal/bootstrap"
	"github.com/mkuzmin/askdoc/internal/config"
	"github.com/mkuzmin/askdoc/internal/observability/logging"
)

const version = "1.0.0"

// The MCP process speaks JSON-RPC over stdio, so logs must stay on stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLoggerTo(os.Stderr, "askdoc-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close(context.Background())

	srv := mcpadapter.NewServer(app.AskUC, version)
	slog.Info("mcp_serving_stdio")
	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("serve stdio", "error", err)
		os.Exit(1)
	}
	slog.Info("mcp_stopped")
}
