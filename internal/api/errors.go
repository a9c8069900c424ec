package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

// Error codes returned in the code field of every error body.
const (
	CodeValidation        = "validation"
	CodeNoFile            = "no_file"
	CodeUnsupportedFormat = "unsupported_format"
	CodeTooLarge          = "too_large"
	CodeExtraction        = "extraction"
	CodeNoMatches         = "no_matches"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{rag.ErrNoFile, http.StatusBadRequest, CodeNoFile, "No file provided"},
	{rag.ErrValidation, http.StatusBadRequest, CodeValidation, ""},
	{extract.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, CodeUnsupportedFormat, "Unsupported file type. Use PDF or plain text."},
	{extract.ErrTooLarge, http.StatusRequestEntityTooLarge, CodeTooLarge, "File exceeds the maximum upload size"},
	{extract.ErrExtraction, http.StatusUnprocessableEntity, CodeExtraction, "Failed to extract text from file"},
	{rag.ErrNoMatches, http.StatusNotFound, CodeNoMatches, "No relevant content found"},
	{docstore.ErrDocumentNotFound, http.StatusNotFound, CodeNotFound, "Document not found"},
}

// internalCategories are reported by name only; their wrapped detail is logged.
var internalCategories = []error{
	rag.ErrEmbedding,
	rag.ErrVectorStore,
	rag.ErrMetadataStore,
	rag.ErrInvalidMetadata,
	rag.ErrSynthesis,
}

// respondError writes the structured error body for err and aborts the chain.
func (s *Server) respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		resp := ErrorResponse{Error: m.message, Code: m.code}
		switch m.code {
		case CodeValidation:
			resp.Error = err.Error()
		case CodeNoMatches:
			resp.Details = err.Error()
		}
		c.AbortWithStatusJSON(m.status, resp)
		return
	}

	_ = c.Error(err)
	s.logger.Error("Request failed", "path", c.FullPath(), "error", err)

	resp := ErrorResponse{Error: "Internal processing failure", Code: CodeInternal}
	for _, category := range internalCategories {
		if errors.Is(err, category) {
			resp.Details = category.Error()
			break
		}
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}
