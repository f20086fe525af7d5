package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bull/pdf-chat-server/internal/queue"
)

// DefaultJobTimeout bounds one ingestion.
const DefaultJobTimeout = 10 * time.Minute

// Ingester runs a single job. Implemented by Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, job queue.Job) *Result
}

// Worker drains the queue with a fixed number of goroutines.
type Worker struct {
	queue      queue.Queue
	ingester   Ingester
	jobTimeout time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewWorker creates a worker. jobTimeout <= 0 uses DefaultJobTimeout.
func NewWorker(q queue.Queue, ingester Ingester, jobTimeout time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Worker{
		queue:      q,
		ingester:   ingester,
		jobTimeout: jobTimeout,
		retryDelay: 3 * time.Second,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled or the queue is closed. A job in flight
// when ctx is cancelled is cancelled too; its file stays stored for reindex.
func (w *Worker) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	w.logger.Info("Starting ingestion workers", "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			w.loop(gctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	logger := w.logger.With("worker", id)
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			logger.Warn("Dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryDelay):
			}
			continue
		}

		w.process(ctx, logger, job)
	}
}

func (w *Worker) process(ctx context.Context, logger *slog.Logger, job queue.Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Ingestion panicked", "document_id", job.DocumentID, "panic", r)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	logger.Info("Ingesting document", "document_id", job.DocumentID, "filename", job.Filename)
	w.ingester.Ingest(jobCtx, job)
}
