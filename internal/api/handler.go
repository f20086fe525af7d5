// Package api is the HTTP surface: upload, listing, download and chat.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bull/pdf-chat-server/internal/chat"
	"github.com/bull/pdf-chat-server/internal/filestore"
	"github.com/bull/pdf-chat-server/internal/metrics"
	"github.com/bull/pdf-chat-server/internal/queue"
	"github.com/bull/pdf-chat-server/internal/storage"
)

// DefaultEnqueueTimeout bounds how long an upload waits for queue space.
const DefaultEnqueueTimeout = 5 * time.Second

// DocumentLister lists document records. Implemented by storage.QdrantStorage.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]*storage.Document, error)
}

// Answerer answers a question about a document. Implemented by chat.Service.
type Answerer interface {
	Answer(ctx context.Context, documentID, query string) chat.Response
}

// Handler serves the /api routes.
type Handler struct {
	files          filestore.Store
	queue          queue.Queue
	documents      DocumentLister
	chat           Answerer
	enqueueTimeout time.Duration
	logger         *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewHandler wires the HTTP handlers to their collaborators.
func NewHandler(files filestore.Store, q queue.Queue, documents DocumentLister, answerer Answerer, enqueueTimeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if enqueueTimeout <= 0 {
		enqueueTimeout = DefaultEnqueueTimeout
	}
	return &Handler{
		files:          files,
		queue:          q,
		documents:      documents,
		chat:           answerer,
		enqueueTimeout: enqueueTimeout,
		logger:         logger,
		newID:          func() string { return uuid.New().String() },
		now:            time.Now,
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/upload", h.Upload)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:document_id/pdf", h.DownloadPDF)
	api.POST("/chat", h.Chat)
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// Upload stores the file, queues ingestion and answers 202 before any
// extraction happens. page_count is always 0 in the response.
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		metrics.Upload("rejected")
		abort(c, http.StatusBadRequest, "No file provided")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		metrics.Upload("rejected")
		abort(c, http.StatusBadRequest, "File must be a PDF")
		return
	}

	ctx := c.Request.Context()
	id := h.newID()
	uploadDate := h.now().UTC()
	logger := h.logger.With("document_id", id, "filename", fh.Filename)

	src, err := fh.Open()
	if err != nil {
		metrics.Upload("error")
		logger.Error("Failed to read upload", "error", err)
		abort(c, http.StatusInternalServerError, "Error saving file")
		return
	}
	defer src.Close()

	if err := h.files.Save(ctx, id, src, fh.Size); err != nil {
		metrics.Upload("error")
		logger.Error("Failed to store upload", "error", err)
		abort(c, http.StatusInternalServerError, "Error saving file")
		return
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, h.enqueueTimeout)
	defer cancel()

	job := queue.Job{DocumentID: id, Filename: fh.Filename, UploadDate: uploadDate}
	if err := h.queue.Enqueue(enqueueCtx, job); err != nil {
		// The file stays stored; `pdfchat reindex` can pick it up later.
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrClosed) {
			metrics.Upload("queue_full")
			logger.Warn("Ingestion queue unavailable", "error", err)
			abort(c, http.StatusServiceUnavailable, "Server is busy processing other documents. Please try again later.")
			return
		}
		metrics.Upload("error")
		logger.Error("Failed to queue ingestion", "error", err)
		abort(c, http.StatusInternalServerError, "Error processing PDF")
		return
	}

	metrics.Upload("accepted")
	logger.Info("Upload accepted", "size", fh.Size)
	c.JSON(http.StatusAccepted, DocumentInfo{
		ID:         id,
		Filename:   fh.Filename,
		PageCount:  0,
		UploadDate: formatDate(uploadDate),
	})
}

// ListDocuments returns every ingested document; documents still waiting in
// the queue are not listed yet.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list documents", "error", err)
		abort(c, http.StatusInternalServerError, "Error listing documents")
		return
	}

	out := make([]DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentInfo(doc))
	}
	c.JSON(http.StatusOK, out)
}

// DownloadPDF streams the stored file.
func (h *Handler) DownloadPDF(c *gin.Context) {
	id := c.Param("document_id")

	rc, info, err := h.files.Open(c.Request.Context(), id)
	if errors.Is(err, filestore.ErrNotFound) {
		abort(c, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to open stored file", "document_id", id, "error", err)
		abort(c, http.StatusInternalServerError, "Error reading document")
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, info.Size, "application/pdf", rc, map[string]string{
		"Content-Disposition": `inline; filename="` + filestore.ObjectName(id) + `"`,
	})
}

// Chat always answers 200 once the request parses; failures are reported
// in the answer text.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "document_id and query are required")
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.Query) == "" {
		abort(c, http.StatusBadRequest, "document_id and query are required")
		return
	}

	c.JSON(http.StatusOK, h.chat.Answer(c.Request.Context(), req.DocumentID, req.Query))
}
