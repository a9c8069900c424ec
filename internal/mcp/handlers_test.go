package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

type stubAnswerer struct {
	result *rag.AnswerResult
	err    error
	last   rag.Query
}

func (s *stubAnswerer) Answer(_ context.Context, q rag.Query) (*rag.AnswerResult, error) {
	s.last = q
	return s.result, s.err
}

type stubDocuments struct {
	docs []*docstore.Document
	err  error
}

func (s *stubDocuments) Get(_ context.Context, id string) (*docstore.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, d := range s.docs {
		if d.DocumentID == id {
			return d, nil
		}
	}
	return nil, docstore.ErrDocumentNotFound
}

func (s *stubDocuments) List(_ context.Context, limit int) ([]*docstore.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.docs) {
		return s.docs[:limit], nil
	}
	return s.docs, nil
}

func newTestServer(answerer *stubAnswerer, docs *stubDocuments) *Server {
	return NewServer(&Config{Answerer: answerer, Documents: docs})
}

func TestServer_handleAsk(t *testing.T) {
	t.Run("Should return answer with sources", func(t *testing.T) {
		answerer := &stubAnswerer{result: &rag.AnswerResult{
			Answer:  "Blue.",
			Sources: []rag.Source{{Title: "Colors", Filename: "colors.txt"}, {Title: "Colors", Filename: "colors.txt"}},
		}}
		s := newTestServer(answerer, &stubDocuments{})

		_, out, err := s.handleAsk(context.Background(), nil, AskDocumentInput{Query: "sky?", DocumentID: "doc-1"})
		require.NoError(t, err)
		assert.Equal(t, "Blue.", out.Answer)
		assert.Len(t, out.Sources, 2)
		assert.Equal(t, rag.Query{Text: "sky?", DocumentID: "doc-1"}, answerer.last)
	})

	t.Run("Should report no matches as message", func(t *testing.T) {
		answerer := &stubAnswerer{err: fmt.Errorf("%w: %s", rag.ErrNoMatches, rag.IndexingHint)}
		s := newTestServer(answerer, &stubDocuments{})

		_, out, err := s.handleAsk(context.Background(), nil, AskDocumentInput{Query: "q", DocumentID: "d"})
		require.NoError(t, err)
		assert.Contains(t, out.Message, "still be indexing")
		assert.Empty(t, out.Sources)
	})

	t.Run("Should hide provider details", func(t *testing.T) {
		answerer := &stubAnswerer{err: fmt.Errorf("%w: secret upstream detail", rag.ErrSynthesis)}
		s := newTestServer(answerer, &stubDocuments{})

		_, _, err := s.handleAsk(context.Background(), nil, AskDocumentInput{Query: "q"})
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrSynthesis)
		assert.NotContains(t, err.Error(), "secret")
	})

	t.Run("Should pass validation errors through", func(t *testing.T) {
		answerer := &stubAnswerer{err: fmt.Errorf("%w: query text is required", rag.ErrValidation)}
		s := newTestServer(answerer, &stubDocuments{})

		_, _, err := s.handleAsk(context.Background(), nil, AskDocumentInput{})
		assert.ErrorIs(t, err, rag.ErrValidation)
	})
}

func TestServer_handleList(t *testing.T) {
	now := time.Now()
	docs := &stubDocuments{docs: []*docstore.Document{
		{DocumentID: "b", Title: "B", Filename: "b.txt", Status: docstore.StatusComplete, ChunkCount: 2, CreatedAt: now},
		{DocumentID: "a", Title: "A", Filename: "a.pdf", Status: docstore.StatusIncomplete, FailureReason: "boom", CreatedAt: now},
	}}
	s := newTestServer(&stubAnswerer{}, docs)

	_, out, err := s.handleList(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)
	assert.Equal(t, "complete", out.Documents[0].Status)
	assert.Equal(t, "boom", out.Documents[1].FailureReason)

	_, out, err = s.handleList(context.Background(), nil, ListDocumentsInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)

	s = newTestServer(&stubAnswerer{}, &stubDocuments{err: errors.New("db down")})
	_, _, err = s.handleList(context.Background(), nil, ListDocumentsInput{})
	assert.Error(t, err)
}

func TestServer_handleGet(t *testing.T) {
	docs := &stubDocuments{docs: []*docstore.Document{
		{DocumentID: "a", Title: "A", Filename: "a.txt", Status: docstore.StatusComplete},
	}}
	s := newTestServer(&stubAnswerer{}, docs)

	_, out, err := s.handleGet(context.Background(), nil, GetDocumentInput{DocumentID: "a"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "A", out.Document.Title)

	_, out, err = s.handleGet(context.Background(), nil, GetDocumentInput{DocumentID: "missing"})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Nil(t, out.Document)

	_, _, err = s.handleGet(context.Background(), nil, GetDocumentInput{})
	assert.Error(t, err)
}

type stubChunks struct {
	counts map[string]uint64
	err    error
}

func (s *stubChunks) CountDocumentChunks(_ context.Context, id string) (uint64, error) {
	return s.counts[id], s.err
}

func TestServer_handleGet_IndexedChunks(t *testing.T) {
	docs := &stubDocuments{docs: []*docstore.Document{
		{DocumentID: "a", Title: "A", Filename: "a.txt", Status: docstore.StatusIndexing},
	}}
	chunks := &stubChunks{counts: map[string]uint64{"a": 4}}
	s := NewServer(&Config{Answerer: &stubAnswerer{}, Documents: docs, Chunks: chunks})

	_, out, err := s.handleGet(context.Background(), nil, GetDocumentInput{DocumentID: "a"})
	require.NoError(t, err)
	require.NotNil(t, out.IndexedChunks)
	assert.Equal(t, uint64(4), *out.IndexedChunks)

	chunks.err = errors.New("qdrant unavailable")
	_, out, err = s.handleGet(context.Background(), nil, GetDocumentInput{DocumentID: "a"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Nil(t, out.IndexedChunks)
}

func TestServer_ToolsRegistered(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(&stubAnswerer{}, &stubDocuments{})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ask_document", "list_documents", "get_document"}, names)
}
