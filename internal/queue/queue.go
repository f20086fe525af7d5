// Package queue hands accepted uploads to the ingestion workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueueFull is returned when a job cannot be accepted before the
	// caller's deadline.
	ErrQueueFull = errors.New("ingestion queue is full")
	// ErrClosed is returned by operations on a closed queue.
	ErrClosed = errors.New("ingestion queue is closed")
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultSize     = 64
	DefaultRedisKey = "pdfchat:ingest"
)

// Job asks the workers to ingest one stored document.
type Job struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
}

// Queue is a FIFO of ingestion jobs.
type Queue interface {
	// Enqueue blocks until the job is accepted or ctx is done, in which case
	// it returns an error wrapping ErrQueueFull.
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
	// Len reports the number of waiting jobs.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend        string
	Size           int
	EnqueueTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// New builds the backend named in cfg.
func New(ctx context.Context, cfg Config) (Queue, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryQueue(cfg.Size), nil
	case BackendRedis:
		return NewRedisQueue(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
