package api

import (
	"time"

	"github.com/bull/pdf-chat-server/internal/storage"
)

// DocumentInfo is the JSON shape of a document in upload and list responses.
type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	UploadDate string `json:"upload_date"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Query      string `json:"query" binding:"required"`
}

// ErrorResponse is returned with every 4xx and 5xx status.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func documentInfo(doc *storage.Document) DocumentInfo {
	return DocumentInfo{
		ID:         doc.ID,
		Filename:   doc.Filename,
		PageCount:  doc.PageCount,
		UploadDate: formatDate(doc.UploadDate),
	}
}
