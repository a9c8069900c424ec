package storage

// Chunk is one embedded slice of a document as stored in Qdrant.
type Chunk struct {
	VectorID      string    // documentID-sequenceIndex
	DocumentID    string    // Join key with the metadata store
	SequenceIndex int       // Position in document (0, 1, 2...)
	Title         string    // Document title
	Filename      string    // Original file name
	Text          string    // Chunk text, used as answer context
	Embedding     []float32 // Dense vector from the embedding model
}

// ScoredChunk is a search hit. MissingFields lists required payload keys that
// were absent from the stored point.
type ScoredChunk struct {
	Chunk         *Chunk
	Score         float64
	MissingFields []string
}

// Config holds connection and collection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string // Defaults to DefaultCollection
	Dimension  int    // Embedding size; must match the embedding model
}

// Payload keys. document_id is the only key used for filtering, both when
// chunks are written and when they are searched.
const (
	PayloadVectorID      = "vector_id"
	PayloadDocumentID    = "document_id"
	PayloadSequenceIndex = "sequence_index"
	PayloadTitle         = "title"
	PayloadFilename      = "filename"
	PayloadText          = "text"
)

// requiredPayloadFields must be present on every search hit.
var requiredPayloadFields = []string{PayloadText}

// DefaultCollection is the Qdrant collection holding all chunks.
const DefaultCollection = "documents"

// vectorName is the named vector used for chunk embeddings.
const vectorName = "content"
