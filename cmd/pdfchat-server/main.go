// Package main provides the PDF chat HTTP server entry point.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/pdf-chat-server/internal/api"
	"github.com/bull/pdf-chat-server/internal/app"
	"github.com/bull/pdf-chat-server/internal/config"
	"github.com/bull/pdf-chat-server/internal/ingest"
	mcpserver "github.com/bull/pdf-chat-server/internal/mcp"
	"github.com/bull/pdf-chat-server/internal/metrics"
	"github.com/bull/pdf-chat-server/internal/queue"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("PDFCHAT_CONFIG"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{Documents: a.Store, Chat: a.Chat})

	// Stdio mode: MCP over stdin/stdout for local clients, no HTTP and no uploads.
	if cfg.ServerMode == config.ModeStdio {
		logger.Info("Starting PDF chat MCP server (stdio mode)")
		return server.Run(ctx)
	}

	q, err := queue.New(ctx, cfg.Queue)
	if err != nil {
		return err
	}
	defer q.Close()

	worker := ingest.NewWorker(q, a.Pipeline, cfg.Ingest.JobTimeout, logger)
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx, cfg.Ingest.Workers)
	}()

	handler := api.NewHandler(a.Files, q, a.Store, a.Chat, cfg.Queue.EnqueueTimeout, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Health:      a.Store,
		Queue:       q,
		Metrics:     metrics.Handler(),
		MCP:         mcpserver.NewHTTPHandler(server, nil),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", srv.Addr, "workers", cfg.Ingest.Workers, "queue", cfg.Queue.Backend)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}

	// Workers watch ctx; closing the queue also stops them if the server
	// exited on its own.
	q.Close()
	select {
	case err := <-workerDone:
		return err
	case <-shutdownCtx.Done():
		logger.Warn("Ingestion workers did not stop in time")
		return nil
	}
}
