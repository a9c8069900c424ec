package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

// handleAsk runs the retrieval pipeline. A query with no matches is not a
// tool error: the output carries an explanatory message instead.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskDocumentInput,
) (*mcp.CallToolResult, AskDocumentOutput, error) {
	result, err := s.answerer.Answer(ctx, rag.Query{Text: input.Query, DocumentID: input.DocumentID})
	if err != nil {
		if errors.Is(err, rag.ErrNoMatches) {
			return nil, AskDocumentOutput{
				Sources: []SourceOutput{},
				Message: err.Error(),
			}, nil
		}
		if errors.Is(err, rag.ErrValidation) {
			return nil, AskDocumentOutput{}, err
		}
		s.logger.Error("ask_document failed", "error", err)
		return nil, AskDocumentOutput{}, fmt.Errorf("failed to answer question: %w", categoryOf(err))
	}

	sources := make([]SourceOutput, len(result.Sources))
	for i, src := range result.Sources {
		sources[i] = SourceOutput{Title: src.Title, Filename: src.Filename}
	}

	return nil, AskDocumentOutput{
		Answer:  result.Answer,
		Sources: sources,
	}, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.documents.List(ctx, input.Limit)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
	}

	out := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i, doc := range docs {
		out.Documents[i] = toDocumentOutput(doc)
	}
	return nil, out, nil
}

func (s *Server) handleGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	if input.DocumentID == "" {
		return nil, GetDocumentOutput{}, fmt.Errorf("document_id is required")
	}
	doc, err := s.documents.Get(ctx, input.DocumentID)
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return nil, GetDocumentOutput{Found: false}, nil
		}
		return nil, GetDocumentOutput{}, fmt.Errorf("failed to get document: %w", err)
	}

	out := toDocumentOutput(doc)
	result := GetDocumentOutput{Document: &out, Found: true}
	if s.chunks != nil {
		n, err := s.chunks.CountDocumentChunks(ctx, doc.DocumentID)
		if err != nil {
			s.logger.Warn("Failed to count indexed chunks", "document_id", doc.DocumentID, "error", err)
		} else {
			result.IndexedChunks = &n
		}
	}
	return nil, result, nil
}

func toDocumentOutput(doc *docstore.Document) DocumentOutput {
	return DocumentOutput{
		DocumentID:    doc.DocumentID,
		Title:         doc.Title,
		Filename:      doc.Filename,
		Status:        string(doc.Status),
		ChunkCount:    doc.ChunkCount,
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
	}
}

// categoryOf reduces an internal error to its sentinel so provider details
// are logged but not returned to the client.
func categoryOf(err error) error {
	for _, sentinel := range []error{
		rag.ErrEmbedding,
		rag.ErrVectorStore,
		rag.ErrInvalidMetadata,
		rag.ErrSynthesis,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return errors.New("internal error")
}
