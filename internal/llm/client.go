// Package llm generates answers through an OpenAI-compatible chat
// completions endpoint, by default a local Ollama server.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyResponse is returned when the model answers with no choices or
// only whitespace.
var ErrEmptyResponse = errors.New("language model returned an empty response")

// Config selects the chat completions endpoint and model.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
}

// Client sends single-turn, non-streaming prompts to the model.
type Client struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewClient creates a client. The SDK does not retry: a slow or failed
// generation is reported to the caller, which owns the timeout policy.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("LLM_BASE_URL must be set")
	}
	if cfg.Model == "" {
		return nil, errors.New("LLM_MODEL must be set")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	// Ollama ignores the key but the SDK always sends one.
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client, model: openai.ChatModel(cfg.Model)}, nil
}

// Generate sends prompt as a single user message and returns the model's reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}

	return answer, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return string(c.model)
}
