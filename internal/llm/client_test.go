package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionServer(t *testing.T, content string, delay time.Duration) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Expected a single user message, got %+v", req.Messages)
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

// TestGenerate verifies the reply text is returned trimmed.
func TestGenerate(t *testing.T) {
	srv := completionServer(t, "  Refunds are accepted within 30 days (page 4).\n", 0)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "ollama", Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	answer, err := client.Generate(context.Background(), "What is the refund policy?")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Refunds are accepted within 30 days (page 4)." {
		t.Errorf("Unexpected answer %q", answer)
	}
}

// TestGenerate_Empty verifies a blank reply is reported as an error.
func TestGenerate_Empty(t *testing.T) {
	srv := completionServer(t, "   ", 0)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL + "/", Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Generate(context.Background(), "hello")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

// TestGenerate_RequestTimeout verifies the per-request timeout applies.
func TestGenerate_RequestTimeout(t *testing.T) {
	srv := completionServer(t, "late", 2*time.Second)
	defer srv.Close()

	client, err := NewClient(Config{
		BaseURL:        srv.URL + "/",
		Model:          "llama3.1:8b",
		RequestTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	start := time.Now()
	_, err = client.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("Expected a timeout error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Generate took %v, expected the request timeout to cut it short", time.Since(start))
	}
}

// TestNewClient_Validation verifies required settings.
func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{Model: "m"}); err == nil || !strings.Contains(err.Error(), "LLM_BASE_URL") {
		t.Errorf("Expected base URL error, got %v", err)
	}
	if _, err := NewClient(Config{BaseURL: "http://localhost/"}); err == nil {
		t.Error("Expected model error")
	}
}
