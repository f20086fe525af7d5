// Package ingest turns a stored PDF into Document and Page records in the
// vector store.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bull/pdf-chat-server/internal/extractor"
	"github.com/bull/pdf-chat-server/internal/metrics"
	"github.com/bull/pdf-chat-server/internal/queue"
	"github.com/bull/pdf-chat-server/internal/storage"
)

// DefaultBatchSize is the number of pages embedded and written per request.
const DefaultBatchSize = 16

var tracer = otel.Tracer("github.com/bull/pdf-chat-server/internal/ingest")

// Extractor reads page text from a local PDF.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]extractor.Page, error)
}

// Store writes ingestion output. Implemented by storage.QdrantStorage.
type Store interface {
	UpsertDocument(ctx context.Context, doc *storage.Document) error
	UpsertPages(ctx context.Context, pages []*storage.Page) error
}

// Files provides a local copy of a stored upload.
type Files interface {
	Fetch(ctx context.Context, id string) (path string, release func(), err error)
}

// Outcome summarizes a Result for logs and metrics.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
	OutcomeFailed   Outcome = "failed"
)

// Result contains statistics about one ingestion.
type Result struct {
	DocumentID     string
	PageCount      int   // pages with text, as written on the Document record
	IndexedPages   int   // pages written to the store
	FailedPages    []int // page numbers whose batch failed
	DocumentStored bool
	ExtractionErr  error
	Duration       time.Duration
}

// Outcome is complete when every record was written and extraction worked,
// failed when nothing was written, and partial otherwise.
func (r *Result) Outcome() Outcome {
	switch {
	case r.DocumentStored && len(r.FailedPages) == 0 && r.ExtractionErr == nil:
		return OutcomeComplete
	case !r.DocumentStored && r.IndexedPages == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Pipeline extracts, embeds and stores one document at a time.
type Pipeline struct {
	files     Files
	extractor Extractor
	store     Store
	batchSize int
	logger    *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
// batchSize <= 0 uses DefaultBatchSize.
func NewPipeline(files Files, ext Extractor, store Store, batchSize int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		files:     files,
		extractor: ext,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Ingest runs every step for job and never stops early: an extraction
// failure yields a zero-page document, a failed write is logged and the
// remaining writes still run. Re-running a job overwrites earlier records.
func (p *Pipeline) Ingest(ctx context.Context, job queue.Job) *Result {
	start := time.Now()
	result := &Result{DocumentID: job.DocumentID}
	logger := p.logger.With("document_id", job.DocumentID, "filename", job.Filename)

	ctx, span := tracer.Start(ctx, "ingest.document",
		trace.WithAttributes(attribute.String("pdfchat.document.id", job.DocumentID)))
	defer span.End()

	pages := p.extract(ctx, logger, job, result)
	result.PageCount = len(pages)

	doc := &storage.Document{
		ID:         job.DocumentID,
		Filename:   job.Filename,
		UploadDate: job.UploadDate,
		PageCount:  len(pages),
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		logger.Error("StoreWriteFailed: document record", "error", err)
		metrics.StoreWriteFailed("document")
	} else {
		result.DocumentStored = true
	}

	p.storePages(ctx, logger, job.DocumentID, pages, result)

	result.Duration = time.Since(start)
	outcome := result.Outcome()
	metrics.IngestionFinished(string(outcome), result.IndexedPages, result.Duration)
	span.SetAttributes(
		attribute.String("pdfchat.ingest.outcome", string(outcome)),
		attribute.Int("pdfchat.ingest.pages", result.PageCount),
		attribute.Int("pdfchat.ingest.failed_pages", len(result.FailedPages)),
	)

	logger.Info("Ingestion complete",
		"outcome", outcome,
		"pages", result.PageCount,
		"indexed", result.IndexedPages,
		"failed_pages", result.FailedPages,
		"duration", result.Duration,
	)
	return result
}

func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, job queue.Job, result *Result) []extractor.Page {
	path, release, err := p.files.Fetch(ctx, job.DocumentID)
	if err != nil {
		logger.Warn("Stored file unavailable, continuing with no pages", "error", err)
		result.ExtractionErr = err
		return nil
	}
	defer release()

	pages, err := p.extractor.Extract(ctx, path)
	if err != nil {
		logger.Warn("Extraction failed, continuing with no pages", "error", err)
		result.ExtractionErr = err
		return nil
	}

	logger.Debug("Extracted document", "pages", len(pages))
	return pages
}

func (p *Pipeline) storePages(ctx context.Context, logger *slog.Logger, documentID string, pages []extractor.Page, result *Result) {
	for i := 0; i < len(pages); i += p.batchSize {
		end := min(i+p.batchSize, len(pages))
		batch := pages[i:end]

		records := make([]*storage.Page, len(batch))
		numbers := make([]int, len(batch))
		for j, page := range batch {
			records[j] = &storage.Page{
				ID:         storage.PageID(documentID, page.Number),
				DocumentID: documentID,
				PageNumber: page.Number,
				Content:    page.Text,
			}
			numbers[j] = page.Number
		}

		if err := p.store.UpsertPages(ctx, records); err != nil {
			logger.Error("StoreWriteFailed: page batch", "pages", numbers, "error", err)
			metrics.StoreWriteFailed("pages")
			result.FailedPages = append(result.FailedPages, numbers...)
			continue
		}
		result.IndexedPages += len(records)
	}
}
