// Package app wires the storage, model clients and pipelines shared by the
// server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bull/pdf-chat-server/internal/chat"
	"github.com/bull/pdf-chat-server/internal/config"
	"github.com/bull/pdf-chat-server/internal/embedding"
	"github.com/bull/pdf-chat-server/internal/extractor"
	"github.com/bull/pdf-chat-server/internal/filestore"
	"github.com/bull/pdf-chat-server/internal/ingest"
	"github.com/bull/pdf-chat-server/internal/llm"
	"github.com/bull/pdf-chat-server/internal/storage"
)

// App holds the long-lived components.
type App struct {
	Store    *storage.QdrantStorage
	Files    filestore.Store
	Pipeline *ingest.Pipeline
	Chat     *chat.Service
}

// New connects to Qdrant, ensures the collections exist and builds the
// ingestion pipeline and chat service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	embeddingClient, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.Embedding.BatchSize)

	store, err := storage.NewQdrantStorage(ctx, cfg.Qdrant, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := store.EnsureCollections(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure collections: %w", err)
	}

	generator, err := llm.NewClient(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	files, err := filestore.New(ctx, cfg.Files)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open file store: %w", err)
	}

	logger.Info("Components ready",
		"qdrant", store.Addr(),
		"file_store", cfg.Files.Backend,
		"embedding_model", embeddingClient.Model(),
		"llm_model", generator.Model(),
	)

	return &App{
		Store:    store,
		Files:    files,
		Pipeline: ingest.NewPipeline(files, extractor.NewPDFExtractor(logger), store, cfg.Ingest.BatchSize, logger),
		Chat:     chat.NewService(store, generator, cfg.Chat, logger),
	}, nil
}

// Close releases the Qdrant connection and, for cloud backends, the file
// store client.
func (a *App) Close() error {
	if c, ok := a.Files.(io.Closer); ok {
		c.Close()
	}
	return a.Store.Close()
}

// NewLogger returns a JSON logger on stderr. Stdout stays free for the MCP
// stdio transport.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
