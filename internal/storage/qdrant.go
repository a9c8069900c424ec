package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg Config) (*QdrantStorage, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection ensures the chunk collection exists with proper configuration.
// Creates the collection with cosine distance and a keyword index on document_id.
// Idempotent - safe to call multiple times.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Scoped searches filter on document_id; without the index every
	// filtered query scans the whole collection.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      PayloadDocumentID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", PayloadDocumentID, err)
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// UpsertChunk stores a single chunk with its embedding.
func (s *QdrantStorage) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	point, err := s.toPoint(chunk)
	if err != nil {
		return err
	}
	return s.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

// UpsertChunks stores multiple chunks with embeddings in Qdrant.
// Chunks are batched in groups of 100 for performance.
func (s *QdrantStorage) UpsertChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			point, err := s.toPoint(chunk)
			if err != nil {
				return err
			}
			points[j] = point
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (s *QdrantStorage) toPoint(chunk *Chunk) (*qdrant.PointStruct, error) {
	if len(chunk.Embedding) != s.dimension {
		return nil, fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
			ErrDimensionMismatch, chunk.VectorID, len(chunk.Embedding), s.dimension)
	}
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(PointID(chunk.VectorID)),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorName: qdrant.NewVector(chunk.Embedding...),
		}),
		Payload: qdrant.NewValueMap(chunkPayload(chunk)),
	}, nil
}

// Search performs vector similarity search over chunks and returns up to
// limit hits in the order Qdrant ranked them. A non-empty documentID restricts
// the search to that document's chunks.
func (s *QdrantStorage) Search(ctx context.Context, embedding []float32, limit int, documentID string) ([]*ScoredChunk, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	name := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &name,
		Filter:         documentFilter(documentID),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		chunk, missing := chunkFromPayload(result.Payload)
		scored = append(scored, &ScoredChunk{
			Chunk:         chunk,
			Score:         float64(result.Score),
			MissingFields: missing,
		})
	}

	return scored, nil
}

// CountDocumentChunks returns the number of stored chunks for a document.
func (s *QdrantStorage) CountDocumentChunks(ctx context.Context, documentID string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         documentFilter(documentID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DeleteDocument removes every chunk belonging to documentID.
func (s *QdrantStorage) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id is required")
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// PointID derives the Qdrant point UUID from a vector id. The mapping is
// deterministic, so re-upserting a vector id overwrites the same point.
func PointID(vectorID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docqa:"+vectorID)).String()
}

func documentFilter(documentID string) *qdrant.Filter {
	if documentID == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(PayloadDocumentID, documentID),
		},
	}
}

func chunkPayload(chunk *Chunk) map[string]any {
	return map[string]any{
		PayloadVectorID:      chunk.VectorID,
		PayloadDocumentID:    chunk.DocumentID,
		PayloadSequenceIndex: chunk.SequenceIndex,
		PayloadTitle:         chunk.Title,
		PayloadFilename:      chunk.Filename,
		PayloadText:          chunk.Text,
	}
}

// chunkFromPayload decodes a stored payload. It never fails; absent required
// keys are reported so the caller can decide how to treat them.
func chunkFromPayload(payload map[string]*qdrant.Value) (*Chunk, []string) {
	var missing []string
	for _, field := range requiredPayloadFields {
		if _, ok := payload[field]; !ok {
			missing = append(missing, field)
		}
	}

	chunk := &Chunk{
		VectorID:      payload[PayloadVectorID].GetStringValue(),
		DocumentID:    payload[PayloadDocumentID].GetStringValue(),
		SequenceIndex: int(payload[PayloadSequenceIndex].GetIntegerValue()),
		Title:         payload[PayloadTitle].GetStringValue(),
		Filename:      payload[PayloadFilename].GetStringValue(),
		Text:          payload[PayloadText].GetStringValue(),
	}

	return chunk, missing
}
