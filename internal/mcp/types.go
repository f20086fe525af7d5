// Package mcp exposes the uploaded documents to MCP clients.
package mcp

// ListDocumentsInput defines the input parameters for the list_documents tool.
// This tool takes no parameters and lists every ingested document.
type ListDocumentsInput struct{}

// ListDocumentsOutput contains the ingested documents, newest first.
type ListDocumentsOutput struct {
	Documents []DocumentSummary `json:"documents"`
	Count     int               `json:"count"`
}

// DocumentSummary describes one document record.
type DocumentSummary struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	UploadDate string `json:"upload_date"`
}

// AskDocumentInput defines the input parameters for the ask_document tool.
type AskDocumentInput struct {
	// DocumentID is the id returned by the upload endpoint.
	DocumentID string `json:"document_id" jsonschema:"The id of the uploaded document to ask about"`
	// Question is answered from the most relevant pages only.
	Question string `json:"question" jsonschema:"The question to answer from the document"`
}

// AskDocumentOutput mirrors the /api/chat response.
type AskDocumentOutput struct {
	Answer  string          `json:"answer"`
	Sources []SourceSummary `json:"sources"`
}

// SourceSummary is a page the answer was drawn from.
type SourceSummary struct {
	Page      int     `json:"page"`
	Relevance float64 `json:"relevance"`
}

// DocumentStatusInput defines the input parameters for the get_document_status tool.
type DocumentStatusInput struct {
	DocumentID string `json:"document_id" jsonschema:"The id of the uploaded document"`
}

// DocumentStatusOutput reports how far ingestion of a document got.
type DocumentStatusOutput struct {
	Found bool `json:"found"`
	// Indexed is false while the document is still queued.
	Indexed      bool   `json:"indexed"`
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename,omitempty"`
	PageCount    int    `json:"page_count"`
	IndexedPages int    `json:"indexed_pages"`
	UploadDate   string `json:"upload_date,omitempty"`
	// Warning is set when fewer pages were stored than the document record claims.
	Warning string `json:"warning,omitempty"`
}
