package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is the metadata record of an uploaded PDF.
// Document points carry no vector; they exist for listing.
type Document struct {
	ID         string    // UUID assigned at upload
	Filename   string    // Original upload filename
	UploadDate time.Time // When the upload was accepted
	PageCount  int       // Pages with extractable text
}

// Page is the text of one PDF page plus its embedding.
type Page struct {
	ID         string    // Deterministic, see PageID
	DocumentID string    // Links to Document.ID
	PageNumber int       // 1-based physical page number
	Content    string    // Extracted text, never blank
	Embedding  []float32 // Filled by UpsertPages when nil
}

// ScoredPage is a search hit. Score is nil when the backend reports none.
type ScoredPage struct {
	Page  *Page
	Score *float64
}

const (
	// DocumentCollection holds one point per uploaded document.
	DocumentCollection = "Document"
	// PageCollection holds one point per extracted page.
	PageCollection = "PDFPage"
	// ContentVector is the named vector used for page similarity.
	ContentVector = "content"
)

// PageID derives the point ID for a page, so re-ingesting a document
// overwrites its pages instead of duplicating them.
func PageID(documentID string, pageNumber int) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%s_%d", documentID, pageNumber))).String()
}
