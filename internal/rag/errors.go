package rag

import "errors"

// Failure categories surfaced to callers. Extraction failures use the
// sentinels in the extract package.
var (
	ErrValidation      = errors.New("validation error")
	ErrNoFile          = errors.New("no file provided")
	ErrEmbedding       = errors.New("embedding provider failed")
	ErrVectorStore     = errors.New("vector store failed")
	ErrMetadataStore   = errors.New("metadata store failed")
	ErrNoMatches       = errors.New("no matching content found")
	ErrInvalidMetadata = errors.New("invalid document metadata")
	ErrSynthesis       = errors.New("answer synthesis failed")
)

// IndexingHint accompanies ErrNoMatches for document-scoped queries.
const IndexingHint = "the document may still be indexing; try again in a few seconds"
