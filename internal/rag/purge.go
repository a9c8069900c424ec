package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mike-a-ellis/docqa/internal/docstore"
)

// VectorPurger removes every chunk of one document.
type VectorPurger interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

// MetadataPurger removes one document record.
type MetadataPurger interface {
	Delete(ctx context.Context, documentID string) error
}

// Purger removes a document from both stores. It is the cleanup path for
// documents left incomplete by a failed ingestion.
type Purger struct {
	vectors   VectorPurger
	documents MetadataPurger
	logger    *slog.Logger
}

// NewPurger creates a Purger.
func NewPurger(vectors VectorPurger, documents MetadataPurger, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{vectors: vectors, documents: documents, logger: logger}
}

// Purge deletes the chunks first and then the record, so a failure in
// between leaves a record that can be purged again. A missing record after
// the chunks are gone is not an error.
func (p *Purger) Purge(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", ErrValidation)
	}
	if err := p.vectors.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("%w: %v", ErrVectorStore, err)
	}
	if err := p.documents.Delete(ctx, documentID); err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			p.logger.Warn("Purged chunks without a metadata record", "document_id", documentID)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrMetadataStore, err)
	}
	p.logger.Info("Purged document", "document_id", documentID)
	return nil
}
