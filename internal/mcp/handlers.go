package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/pdf-chat-server/internal/storage"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(docs Documents) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		records, err := docs.ListDocuments(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		out := make([]DocumentSummary, 0, len(records))
		for _, doc := range records {
			out = append(out, DocumentSummary{
				ID:         doc.ID,
				Filename:   doc.Filename,
				PageCount:  doc.PageCount,
				UploadDate: formatDate(doc.UploadDate),
			})
		}
		return nil, ListDocumentsOutput{Documents: out, Count: len(out)}, nil
	}
}

// makeAskHandler creates the ask_document tool handler.
// Chat failures come back as fallback answers, so the tool only errors on
// bad input.
func makeAskHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, AskDocumentInput,
) (*mcp.CallToolResult, AskDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocumentInput) (
		*mcp.CallToolResult, AskDocumentOutput, error,
	) {
		if strings.TrimSpace(input.DocumentID) == "" || strings.TrimSpace(input.Question) == "" {
			return nil, AskDocumentOutput{}, errors.New("document_id and question are required")
		}

		resp := answerer.Answer(ctx, input.DocumentID, input.Question)
		sources := make([]SourceSummary, 0, len(resp.Sources))
		for _, s := range resp.Sources {
			sources = append(sources, SourceSummary{Page: s.Page, Relevance: s.Relevance})
		}
		return nil, AskDocumentOutput{Answer: resp.Answer, Sources: sources}, nil
	}
}

// makeStatusHandler creates the get_document_status tool handler.
// A document that is not found may still be waiting in the ingestion queue.
func makeStatusHandler(docs Documents) func(
	context.Context, *mcp.CallToolRequest, DocumentStatusInput,
) (*mcp.CallToolResult, DocumentStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DocumentStatusInput) (
		*mcp.CallToolResult, DocumentStatusOutput, error,
	) {
		doc, err := docs.GetDocument(ctx, input.DocumentID)
		if err != nil {
			if errors.Is(err, storage.ErrDocumentNotFound) {
				return nil, DocumentStatusOutput{DocumentID: input.DocumentID}, nil
			}
			return nil, DocumentStatusOutput{}, fmt.Errorf("qdrant_error: failed to get document: %w", err)
		}

		indexed, err := docs.CountPages(ctx, input.DocumentID)
		if err != nil {
			return nil, DocumentStatusOutput{}, fmt.Errorf("qdrant_error: failed to count pages: %w", err)
		}

		out := DocumentStatusOutput{
			Found:        true,
			Indexed:      true,
			DocumentID:   doc.ID,
			Filename:     doc.Filename,
			PageCount:    doc.PageCount,
			IndexedPages: indexed,
			UploadDate:   formatDate(doc.UploadDate),
		}
		if indexed < doc.PageCount {
			out.Warning = fmt.Sprintf("Only %d of %d pages are searchable. Consider running reindex.", indexed, doc.PageCount)
		}
		return nil, out, nil
	}
}
