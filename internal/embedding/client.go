package embedding

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config selects the embeddings endpoint. An empty BaseURL means OpenAI;
// any OpenAI-compatible /v1 endpoint (Ollama, vLLM) works too.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewClient creates a client for the configured endpoint. Hosted OpenAI
// requires an API key; self-hosted endpoints do not.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" && cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY or EMBEDDING_API_KEY must be set when EMBEDDING_BASE_URL is empty")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model must be set")
	}

	opts := []option.RequestOption{
		// Rate limits are retried by the Embedder.
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{client: &client, model: openai.EmbeddingModel(cfg.Model)}, nil
}

// Model returns the embedding model name.
func (c *Client) Model() string {
	return string(c.model)
}
