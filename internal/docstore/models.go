package docstore

import "time"

// Status tracks how far ingestion of a document got.
type Status string

const (
	// StatusIndexing is set when the record is created, before any chunk is stored.
	StatusIndexing Status = "indexing"
	// StatusComplete means every chunk of the document was stored.
	StatusComplete Status = "complete"
	// StatusIncomplete means ingestion failed after the record was written.
	StatusIncomplete Status = "incomplete"
)

// Document is the relational record of an ingested document.
type Document struct {
	ID            int64
	DocumentID    string
	OwnerID       string
	Title         string
	Filename      string
	Status        Status
	ChunkCount    int
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDocument is the input to Create.
type NewDocument struct {
	DocumentID string
	OwnerID    string
	Title      string
	Filename   string
}
