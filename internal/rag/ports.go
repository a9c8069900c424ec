package rag

import (
	"context"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/storage"
	"github.com/mike-a-ellis/docqa/internal/synthesis"
)

// Extractor turns an upload into plain text.
type Extractor interface {
	Extract(ctx context.Context, upload *extract.Upload) (string, error)
}

// Embedder maps text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists and searches chunk embeddings.
type VectorStore interface {
	UpsertChunk(ctx context.Context, chunk *storage.Chunk) error
	Search(ctx context.Context, embedding []float32, limit int, documentID string) ([]*storage.ScoredChunk, error)
}

// BatchEmbedder embeds several texts in one call, returning vectors in input order.
type BatchEmbedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchVectorStore persists several chunks in one call.
type BatchVectorStore interface {
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
}

// MetadataStore persists one record per ingested document.
type MetadataStore interface {
	Create(ctx context.Context, in docstore.NewDocument) (*docstore.Document, error)
	MarkComplete(ctx context.Context, documentID string, chunkCount int) error
	MarkIncomplete(ctx context.Context, documentID string, chunkCount int, reason string) error
}

// Synthesizer produces an answer from a question and passages.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) (*synthesis.Result, error)
}
