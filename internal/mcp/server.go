package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/pdf-chat-server/internal/chat"
	"github.com/bull/pdf-chat-server/internal/storage"
)

// Documents reads document records. Implemented by storage.QdrantStorage.
type Documents interface {
	ListDocuments(ctx context.Context) ([]*storage.Document, error)
	GetDocument(ctx context.Context, id string) (*storage.Document, error)
	CountPages(ctx context.Context, documentID string) (int, error)
}

// Answerer answers questions about a document. Implemented by chat.Service.
type Answerer interface {
	Answer(ctx context.Context, documentID, query string) chat.Response
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Documents Documents
	Chat      Answerer
	Version   string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "pdf-chat-server", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the uploaded PDF documents that finished ingestion, newest first, with their page counts.",
	}, makeListHandler(cfg.Documents))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question about one uploaded PDF using its most relevant pages. Returns the answer and the pages it was drawn from.",
	}, makeAskHandler(cfg.Chat))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_document_status",
		Description: "Report whether a document has been ingested and how many of its pages are searchable.",
	}, makeStatusHandler(cfg.Documents))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
