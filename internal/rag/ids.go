package rag

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// NewDocumentID returns a new K-sortable document identifier.
func NewDocumentID() string {
	return ksuid.New().String()
}

// VectorID names the vector entry for chunk seq of a document.
func VectorID(documentID string, seq int) string {
	return fmt.Sprintf("%s-%d", documentID, seq)
}
