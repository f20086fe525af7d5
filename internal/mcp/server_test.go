package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdf-chat-server/internal/chat"
	"github.com/bull/pdf-chat-server/internal/storage"
)

type fakeDocuments struct {
	docs  []*storage.Document
	pages map[string]int
	err   error
}

func (f *fakeDocuments) ListDocuments(context.Context) ([]*storage.Document, error) {
	return f.docs, f.err
}

func (f *fakeDocuments) GetDocument(_ context.Context, id string) (*storage.Document, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, storage.ErrDocumentNotFound
}

func (f *fakeDocuments) CountPages(_ context.Context, id string) (int, error) {
	return f.pages[id], nil
}

type fakeAnswerer struct{ resp chat.Response }

func (f fakeAnswerer) Answer(context.Context, string, string) chat.Response { return f.resp }

// connect runs the server over in-memory transports and returns a client session.
func connect(t *testing.T, cfg *Config) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := NewServer(cfg).MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool[T any](t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (T, *mcp.CallToolResult) {
	t.Helper()

	var out T
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if res.IsError {
		return out, res
	}

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	return out, res
}

func sampleDocuments() *fakeDocuments {
	return &fakeDocuments{
		docs: []*storage.Document{
			{ID: "doc-2", Filename: "b.pdf", PageCount: 5, UploadDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
			{ID: "doc-1", Filename: "a.pdf", PageCount: 3, UploadDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		},
		pages: map[string]int{"doc-1": 3, "doc-2": 4},
	}
}

func TestToolsRegistered(t *testing.T) {
	cs := connect(t, &Config{Documents: sampleDocuments(), Chat: fakeAnswerer{}})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_documents", "ask_document", "get_document_status"}, names)
}

func TestListDocumentsTool(t *testing.T) {
	cs := connect(t, &Config{Documents: sampleDocuments(), Chat: fakeAnswerer{}})

	out, _ := callTool[ListDocumentsOutput](t, cs, "list_documents", map[string]any{})
	require.Equal(t, 2, out.Count)
	assert.Equal(t, "doc-2", out.Documents[0].ID)
	assert.Equal(t, 5, out.Documents[0].PageCount)
	assert.Equal(t, "2024-05-01T00:00:00Z", out.Documents[1].UploadDate)
}

func TestListDocumentsToolStoreError(t *testing.T) {
	cs := connect(t, &Config{Documents: &fakeDocuments{err: errors.New("unavailable")}, Chat: fakeAnswerer{}})

	_, res := callTool[ListDocumentsOutput](t, cs, "list_documents", map[string]any{})
	assert.True(t, res.IsError)
}

func TestAskDocumentTool(t *testing.T) {
	answerer := fakeAnswerer{resp: chat.Response{
		Answer:  "Within 30 days.",
		Sources: []chat.Source{{Page: 4, Relevance: 0.91, Text: "full page"}},
	}}
	cs := connect(t, &Config{Documents: sampleDocuments(), Chat: answerer})

	out, _ := callTool[AskDocumentOutput](t, cs, "ask_document", map[string]any{
		"document_id": "doc-1",
		"question":    "What is the refund window?",
	})
	assert.Equal(t, "Within 30 days.", out.Answer)
	assert.Equal(t, []SourceSummary{{Page: 4, Relevance: 0.91}}, out.Sources)
}

func TestAskDocumentToolRejectsBlankQuestion(t *testing.T) {
	cs := connect(t, &Config{Documents: sampleDocuments(), Chat: fakeAnswerer{}})

	_, res := callTool[AskDocumentOutput](t, cs, "ask_document", map[string]any{
		"document_id": "doc-1",
		"question":    "   ",
	})
	assert.True(t, res.IsError)
}

func TestDocumentStatusTool(t *testing.T) {
	cs := connect(t, &Config{Documents: sampleDocuments(), Chat: fakeAnswerer{}})

	tests := []struct {
		id          string
		wantFound   bool
		wantIndexed int
		wantWarning bool
	}{
		{"doc-1", true, 3, false},
		{"doc-2", true, 4, true},
		{"queued", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			out, _ := callTool[DocumentStatusOutput](t, cs, "get_document_status", map[string]any{"document_id": tt.id})
			assert.Equal(t, tt.id, out.DocumentID)
			assert.Equal(t, tt.wantFound, out.Found)
			assert.Equal(t, tt.wantIndexed, out.IndexedPages)
			assert.Equal(t, tt.wantWarning, out.Warning != "")
		})
	}
}
