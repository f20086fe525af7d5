// Package config loads server and CLI settings from the environment,
// an optional .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bull/pdf-chat-server/internal/chat"
	"github.com/bull/pdf-chat-server/internal/embedding"
	"github.com/bull/pdf-chat-server/internal/filestore"
	"github.com/bull/pdf-chat-server/internal/llm"
	"github.com/bull/pdf-chat-server/internal/queue"
	"github.com/bull/pdf-chat-server/internal/storage"
)

// Config is the fully resolved configuration for both binaries.
type Config struct {
	Port        string
	ServerMode  string
	CORSOrigins []string
	LogLevel    string

	Files     filestore.Config
	Qdrant    storage.Config
	Embedding embedding.Config
	LLM       llm.Config
	Chat      chat.Options
	Queue     queue.Config
	Ingest    IngestConfig
}

// IngestConfig controls the background ingestion workers.
type IngestConfig struct {
	Workers    int
	BatchSize  int
	JobTimeout time.Duration
}

const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("server_mode", ModeHTTP)
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("log_level", "info")

	// File storage
	v.SetDefault("file_store", filestore.BackendDisk)
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "pdf-uploads")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("gcs_bucket", "")

	// Vector store
	v.SetDefault("qdrant_host", "localhost")
	v.SetDefault("qdrant_port", 6334)
	v.SetDefault("qdrant_api_key", "")

	// Embeddings
	v.SetDefault("embedding_base_url", "")
	v.SetDefault("embedding_api_key", "")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_dimension", 1536)
	v.SetDefault("embedding_batch_size", embedding.DefaultBatchSize)

	// Generation
	v.SetDefault("llm_base_url", "http://127.0.0.1:11434/v1/")
	v.SetDefault("llm_api_key", "ollama")
	v.SetDefault("llm_model", "llama3.1:8b")
	v.SetDefault("llm_request_timeout", 60*time.Second)

	// Chat
	v.SetDefault("chat_top_k", chat.DefaultTopK)
	v.SetDefault("chat_max_page_chars", chat.DefaultMaxPageChars)
	v.SetDefault("retrieval_timeout", chat.DefaultRetrievalTimeout)
	v.SetDefault("generation_timeout", chat.DefaultGenerationTimeout)
	v.SetDefault("chat_include_source_text", false)

	// Queue
	v.SetDefault("queue_backend", queue.BackendMemory)
	v.SetDefault("queue_size", queue.DefaultSize)
	v.SetDefault("enqueue_timeout", 5*time.Second)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_queue_key", queue.DefaultRedisKey)

	// Ingestion
	v.SetDefault("ingest_workers", 2)
	v.SetDefault("ingest_batch_size", 16)
	v.SetDefault("ingest_job_timeout", 10*time.Minute)

	// Used when EMBEDDING_API_KEY is unset
	v.SetDefault("openai_api_key", "")
}

// Load resolves configuration. Environment variables win over the config
// file, which wins over defaults. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		ServerMode:  strings.ToLower(v.GetString("server_mode")),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		LogLevel:    v.GetString("log_level"),
		Files: filestore.Config{
			Backend:        strings.ToLower(v.GetString("file_store")),
			Dir:            v.GetString("upload_dir"),
			MinioEndpoint:  v.GetString("minio_endpoint"),
			MinioAccessKey: v.GetString("minio_access_key"),
			MinioSecretKey: v.GetString("minio_secret_key"),
			MinioUseSSL:    v.GetBool("minio_use_ssl"),
			Bucket:         bucketFor(v),
		},
		Qdrant: storage.Config{
			Host:      v.GetString("qdrant_host"),
			Port:      v.GetInt("qdrant_port"),
			APIKey:    v.GetString("qdrant_api_key"),
			Dimension: v.GetInt("embedding_dimension"),
		},
		Embedding: embedding.Config{
			BaseURL:   v.GetString("embedding_base_url"),
			APIKey:    firstNonEmpty(v.GetString("embedding_api_key"), v.GetString("openai_api_key")),
			Model:     v.GetString("embedding_model"),
			BatchSize: v.GetInt("embedding_batch_size"),
		},
		LLM: llm.Config{
			BaseURL:        v.GetString("llm_base_url"),
			APIKey:         v.GetString("llm_api_key"),
			Model:          v.GetString("llm_model"),
			RequestTimeout: v.GetDuration("llm_request_timeout"),
		},
		Chat: chat.Options{
			TopK:              v.GetInt("chat_top_k"),
			MaxPageChars:      v.GetInt("chat_max_page_chars"),
			RetrievalTimeout:  v.GetDuration("retrieval_timeout"),
			GenerationTimeout: v.GetDuration("generation_timeout"),
			IncludeSourceText: v.GetBool("chat_include_source_text"),
		},
		Queue: queue.Config{
			Backend:        strings.ToLower(v.GetString("queue_backend")),
			Size:           v.GetInt("queue_size"),
			EnqueueTimeout: v.GetDuration("enqueue_timeout"),
			RedisAddr:      v.GetString("redis_addr"),
			RedisPassword:  v.GetString("redis_password"),
			RedisDB:        v.GetInt("redis_db"),
			RedisKey:       v.GetString("redis_queue_key"),
		},
		Ingest: IngestConfig{
			Workers:    v.GetInt("ingest_workers"),
			BatchSize:  v.GetInt("ingest_batch_size"),
			JobTimeout: v.GetDuration("ingest_job_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.ServerMode {
	case ModeHTTP, ModeStdio:
	default:
		errs = append(errs, fmt.Errorf("SERVER_MODE must be %q or %q, got %q", ModeHTTP, ModeStdio, c.ServerMode))
	}

	switch c.Files.Backend {
	case filestore.BackendDisk:
		if c.Files.Dir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR must not be empty"))
		}
	case filestore.BackendMinio, filestore.BackendGCS:
		if c.Files.Bucket == "" {
			errs = append(errs, fmt.Errorf("a bucket is required for FILE_STORE=%s", c.Files.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FILE_STORE %q", c.Files.Backend))
	}

	switch c.Queue.Backend {
	case queue.BackendMemory, queue.BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.Queue.Backend))
	}

	if c.Qdrant.Dimension <= 0 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSION must be positive"))
	}
	if c.Queue.Size <= 0 {
		errs = append(errs, errors.New("QUEUE_SIZE must be positive"))
	}
	if c.Ingest.Workers <= 0 {
		errs = append(errs, errors.New("INGEST_WORKERS must be positive"))
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, errors.New("INGEST_BATCH_SIZE must be positive"))
	}
	if c.Chat.TopK <= 0 {
		errs = append(errs, errors.New("CHAT_TOP_K must be positive"))
	}

	return errors.Join(errs...)
}

func bucketFor(v *viper.Viper) string {
	if strings.EqualFold(v.GetString("file_store"), filestore.BackendGCS) {
		return v.GetString("gcs_bucket")
	}
	return v.GetString("minio_bucket")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
