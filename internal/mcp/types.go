// Package mcp exposes document question answering as MCP tools.
package mcp

import "time"

// AskDocumentInput defines the input parameters for the ask_document tool.
type AskDocumentInput struct {
	// Query is the natural language question.
	Query string `json:"query" jsonschema:"the question to answer from the uploaded documents"`
	// DocumentID restricts retrieval to one document.
	DocumentID string `json:"document_id,omitempty" jsonschema:"identifier of the document to search; omit to search all documents"`
}

// AskDocumentOutput contains the cited answer.
type AskDocumentOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources"`
	// Message explains an empty answer (e.g. the document is still indexing).
	Message string `json:"message,omitempty"`
}

// SourceOutput identifies a document that contributed context.
type SourceOutput struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// ListDocumentsInput defines the input parameters for the list_documents tool.
type ListDocumentsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 50)"`
}

// ListDocumentsOutput contains the most recent documents.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is the metadata record of one document.
type DocumentOutput struct {
	DocumentID    string    `json:"document_id"`
	Title         string    `json:"title"`
	Filename      string    `json:"filename"`
	Status        string    `json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// GetDocumentInput defines the input parameters for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier returned when the document was ingested"`
}

// GetDocumentOutput contains a single document record.
type GetDocumentOutput struct {
	Document *DocumentOutput `json:"document,omitempty"`
	// IndexedChunks is the number of chunks currently searchable.
	IndexedChunks *uint64 `json:"indexed_chunks,omitempty"`
	// Found indicates whether the document exists.
	Found bool `json:"found"`
}
