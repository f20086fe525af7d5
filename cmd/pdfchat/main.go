// Package main provides the pdfchat admin CLI for re-ingesting stored uploads
// and inspecting the index.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/pdf-chat-server/internal/app"
	"github.com/bull/pdf-chat-server/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "pdfchat",
	Short:        "PDF chat index administration tool",
	Long:         "CLI tool for rebuilding and inspecting the PDF chat index in Qdrant",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("PDFCHAT_CONFIG"), "optional YAML config file")
	rootCmd.AddCommand(reindexCmd, documentsCmd, askCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

// setup loads configuration and connects to every backend.
func setup(ctx context.Context) (*config.Config, *app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg.LogLevel)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}
