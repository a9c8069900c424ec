package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/docqa/internal/chunk"
	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/storage"
)

// IngestRequest is a single document upload.
type IngestRequest struct {
	Upload *extract.Upload
	Title  string // Defaults to the upload's filename
}

// IngestResult describes a completed ingestion.
type IngestResult struct {
	DocumentID string
	ChunkCount int
	Filename   string
	Title      string
}

// IngestorConfig holds ingestion settings.
type IngestorConfig struct {
	OwnerID   string // Placeholder owner recorded on every document
	Workers   int    // Concurrent embed+upsert workers; <= 1 is sequential
	BatchSize int    // Chunks per embed and upsert call; <= 1 is one call per chunk
}

// Ingestor runs extract, chunk, embed and persist for one document at a time.
type Ingestor struct {
	extractor Extractor
	chunker   *chunk.Chunker
	embedder  Embedder
	vectors   VectorStore
	documents MetadataStore
	metrics   *Metrics
	cfg       IngestorConfig
	logger    *slog.Logger
	newID     func() string
}

// NewIngestor creates an Ingestor. metrics may be nil.
func NewIngestor(
	extractor Extractor,
	chunker *chunk.Chunker,
	embedder Embedder,
	vectors VectorStore,
	documents MetadataStore,
	metrics *Metrics,
	cfg IngestorConfig,
	logger *slog.Logger,
) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if chunker == nil {
		chunker = chunk.NewChunker(chunk.DefaultMaxLength)
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		documents: documents,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		newID:     NewDocumentID,
	}
}

// Ingest stores an uploaded document and returns its identifier and chunk count.
// The metadata record is written before any chunk, so a failure partway
// leaves a record marked incomplete and whatever chunks were stored. Nothing
// is rolled back.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	result, err := i.ingest(ctx, req)
	if err != nil {
		i.metrics.ingestion(OutcomeFailure)
		return nil, err
	}
	i.metrics.ingestion(OutcomeSuccess)
	return result, nil
}

func (i *Ingestor) ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	upload := req.Upload
	if upload == nil || upload.Body == nil || strings.TrimSpace(upload.Filename) == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrNoFile)
	}

	text, err := i.extractor.Extract(ctx, upload)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = upload.Filename
	}
	documentID := i.newID()
	logger := i.logger.With("document_id", documentID, "filename", upload.Filename)

	if _, err := i.documents.Create(ctx, docstore.NewDocument{
		DocumentID: documentID,
		OwnerID:    i.cfg.OwnerID,
		Title:      title,
		Filename:   upload.Filename,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataStore, err)
	}

	chunks := i.chunker.Chunk(text)
	logger.Info("Ingesting document", "chunks", len(chunks), "characters", len([]rune(text)))

	stored, err := i.storeChunks(ctx, documentID, title, upload.Filename, chunks)
	if err != nil {
		logger.Warn("Ingestion incomplete", "stored", stored, "error", err)
		i.markIncomplete(ctx, logger, documentID, stored, err)
		return nil, err
	}

	if err := i.documents.MarkComplete(ctx, documentID, len(chunks)); err != nil {
		logger.Warn("Failed to mark document complete", "error", err)
		i.markIncomplete(ctx, logger, documentID, len(chunks), err)
		return nil, fmt.Errorf("%w: %v", ErrMetadataStore, err)
	}

	logger.Info("Indexed document", "chunks", len(chunks))
	return &IngestResult{
		DocumentID: documentID,
		ChunkCount: len(chunks),
		Filename:   upload.Filename,
		Title:      title,
	}, nil
}

// markIncomplete records a failed ingestion. The request context may already
// be cancelled, so the update runs without it.
func (i *Ingestor) markIncomplete(ctx context.Context, logger *slog.Logger, documentID string, stored int, cause error) {
	markCtx := context.WithoutCancel(ctx)
	if err := i.documents.MarkIncomplete(markCtx, documentID, stored, cause.Error()); err != nil {
		logger.Error("Failed to mark document incomplete", "error", err)
	}
}

// storeChunks embeds and upserts every chunk and returns how many were stored.
func (i *Ingestor) storeChunks(ctx context.Context, documentID, title, filename string, chunks []chunk.Chunk) (int, error) {
	var stored atomic.Int64

	storeOne := func(ctx context.Context, c chunk.Chunk) error {
		vec, err := i.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrEmbedding, c.Index, err)
		}
		err = i.vectors.UpsertChunk(ctx, &storage.Chunk{
			VectorID:      VectorID(documentID, c.Index),
			DocumentID:    documentID,
			SequenceIndex: c.Index,
			Title:         title,
			Filename:      filename,
			Text:          c.Text,
			Embedding:     vec,
		})
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrVectorStore, c.Index, err)
		}
		stored.Add(1)
		i.metrics.chunkIndexed()
		return nil
	}

	if i.cfg.BatchSize > 1 {
		embedder, okE := i.embedder.(BatchEmbedder)
		vectors, okV := i.vectors.(BatchVectorStore)
		if okE && okV {
			return i.storeBatches(ctx, embedder, vectors, documentID, title, filename, chunks)
		}
	}

	if i.cfg.Workers <= 1 {
		for _, c := range chunks {
			if err := storeOne(ctx, c); err != nil {
				return int(stored.Load()), err
			}
		}
		return int(stored.Load()), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)
	for _, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return storeOne(gctx, c)
		})
	}
	err := g.Wait()
	return int(stored.Load()), err
}

// storeBatches embeds and upserts chunks BatchSize at a time. A failed batch
// stops ingestion; earlier batches stay stored.
func (i *Ingestor) storeBatches(
	ctx context.Context,
	embedder BatchEmbedder,
	vectors BatchVectorStore,
	documentID, title, filename string,
	chunks []chunk.Chunk,
) (int, error) {
	stored := 0
	for start := 0; start < len(chunks); start += i.cfg.BatchSize {
		batch := chunks[start:min(start+i.cfg.BatchSize, len(chunks))]
		texts := make([]string, len(batch))
		for n, c := range batch {
			texts[n] = c.Text
		}

		vecs, err := embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return stored, fmt.Errorf("%w: chunks %d-%d: %v", ErrEmbedding, batch[0].Index, batch[len(batch)-1].Index, err)
		}
		if len(vecs) != len(batch) {
			return stored, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vecs), len(batch))
		}

		points := make([]*storage.Chunk, len(batch))
		for n, c := range batch {
			points[n] = &storage.Chunk{
				VectorID:      VectorID(documentID, c.Index),
				DocumentID:    documentID,
				SequenceIndex: c.Index,
				Title:         title,
				Filename:      filename,
				Text:          c.Text,
				Embedding:     vecs[n],
			}
		}
		if err := vectors.UpsertChunks(ctx, points); err != nil {
			return stored, fmt.Errorf("%w: chunks %d-%d: %v", ErrVectorStore, batch[0].Index, batch[len(batch)-1].Index, err)
		}
		stored += len(batch)
		for range batch {
			i.metrics.chunkIndexed()
		}
	}
	return stored, nil
}
