package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/storage"
	"github.com/mike-a-ellis/docqa/internal/synthesis"
)

// plainExtractor accepts only text/plain and returns the body unchanged.
type plainExtractor struct{}

func (plainExtractor) Extract(_ context.Context, u *extract.Upload) (string, error) {
	if u.ContentType != extract.MIMEPlainText {
		return "", extract.ErrUnsupportedFormat
	}
	b, err := io.ReadAll(u.Body)
	if err != nil {
		return "", extract.ErrExtraction
	}
	return string(b), nil
}

// hashEmbedder produces a deterministic 8-dimensional vector per text.
type hashEmbedder struct {
	mu         sync.Mutex
	calls      int
	batchCalls int
	err        error
	failOn     string
}

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("quota exceeded")
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32((seed>>(i*8))&0xff) + 1
	}
	return vec, nil
}

func (e *hashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for n, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[n] = vec
	}
	return out, nil
}

// memoryVectors is an in-memory vector store with cosine scoring.
type memoryVectors struct {
	mu          sync.Mutex
	chunks      []*storage.Chunk
	searchCalls map[string]int
	upsertErr   error
	searchErr   error
	deleteErr   error
	batchSizes  []int
	// results overrides scoring when set.
	results [][]*storage.ScoredChunk
}

func newMemoryVectors() *memoryVectors {
	return &memoryVectors{searchCalls: map[string]int{}}
}

func (m *memoryVectors) UpsertChunk(_ context.Context, c *storage.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.chunks = append(m.chunks, c)
	return nil
}

func (m *memoryVectors) UpsertChunks(_ context.Context, chunks []*storage.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.batchSizes = append(m.batchSizes, len(chunks))
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memoryVectors) Search(_ context.Context, vec []float32, limit int, documentID string) ([]*storage.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.searchCalls[documentID]
	m.searchCalls[documentID]++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.results != nil {
		if call < len(m.results) {
			return m.results[call], nil
		}
		return nil, nil
	}

	var hits []*storage.ScoredChunk
	for _, c := range m.chunks {
		if documentID != "" && c.DocumentID != documentID {
			continue
		}
		hits = append(hits, &storage.ScoredChunk{Chunk: c, Score: cosine(vec, c.Embedding)})
	}
	// Highest first, like the real store.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *memoryVectors) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *memoryVectors) byDocument(documentID string) []*storage.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// memoryDocuments is an in-memory metadata store.
type memoryDocuments struct {
	mu          sync.Mutex
	docs        map[string]*docstore.Document
	createErr   error
	completeErr error
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{docs: map[string]*docstore.Document{}}
}

func (m *memoryDocuments) Create(_ context.Context, in docstore.NewDocument) (*docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	doc := &docstore.Document{
		DocumentID: in.DocumentID,
		OwnerID:    in.OwnerID,
		Title:      in.Title,
		Filename:   in.Filename,
		Status:     docstore.StatusIndexing,
	}
	m.docs[in.DocumentID] = doc
	return doc, nil
}

func (m *memoryDocuments) MarkComplete(_ context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return docstore.ErrDocumentNotFound
	}
	doc.Status = docstore.StatusComplete
	doc.ChunkCount = n
	return nil
}

func (m *memoryDocuments) MarkIncomplete(_ context.Context, id string, n int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return docstore.ErrDocumentNotFound
	}
	doc.Status = docstore.StatusIncomplete
	doc.ChunkCount = n
	doc.FailureReason = reason
	return nil
}

func (m *memoryDocuments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return docstore.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memoryDocuments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// echoSynthesizer answers with the first passage and records the request.
type echoSynthesizer struct {
	last synthesis.Request
	used int // PassagesUsed override; 0 means all
	err  error
}

func (s *echoSynthesizer) Synthesize(_ context.Context, req synthesis.Request) (*synthesis.Result, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	used := len(req.Passages)
	if s.used > 0 {
		used = s.used
	}
	answer := "no context"
	if len(req.Passages) > 0 {
		answer = "Based on " + req.Passages[0].Filename + ": " + req.Passages[0].Text
	}
	return &synthesis.Result{Answer: answer, PassagesUsed: used}, nil
}
