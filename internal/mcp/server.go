package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

// Answerer answers questions over ingested documents.
type Answerer interface {
	Answer(ctx context.Context, q rag.Query) (*rag.AnswerResult, error)
}

// DocumentReader reads document metadata records.
type DocumentReader interface {
	Get(ctx context.Context, documentID string) (*docstore.Document, error)
	List(ctx context.Context, limit int) ([]*docstore.Document, error)
}

// ChunkCounter reports how many chunks of a document the vector store holds.
type ChunkCounter interface {
	CountDocumentChunks(ctx context.Context, documentID string) (uint64, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server    *mcp.Server
	answerer  Answerer
	documents DocumentReader
	chunks    ChunkCounter
	logger    *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Answerer  Answerer
	Documents DocumentReader
	Chunks    ChunkCounter // Optional; fills indexed_chunks in get_document
	Version   string
	Logger    *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: version,
	}

	s := &Server{
		server:    mcp.NewServer(impl, nil),
		answerer:  cfg.Answerer,
		documents: cfg.Documents,
		chunks:    cfg.Chunks,
		logger:    logger,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question from uploaded documents. Returns the answer with the title and filename of each source passage.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List recently ingested documents with their identifiers and indexing status.",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get the metadata record of one document by identifier.",
	}, s.handleGet)

	return s
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
