package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

// IngestResponse is returned by POST /api/ingest.
type IngestResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
	Filename   string `json:"filename"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	QueryText  string `json:"queryText" binding:"required"`
	DocumentID string `json:"documentId"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	Answer  string           `json:"answer"`
	Sources []SourceResponse `json:"sources"`
}

// SourceResponse cites one context record.
type SourceResponse struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// DocumentResponse is a document metadata record.
type DocumentResponse struct {
	DocumentID    string    `json:"documentId"`
	Title         string    `json:"title"`
	Filename      string    `json:"filename"`
	OwnerID       string    `json:"ownerId"`
	Status        string    `json:"status"`
	ChunkCount    int       `json:"chunkCount"`
	FailureReason string    `json:"failureReason,omitempty"`
	IndexedChunks *uint64   `json:"indexedChunks,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *Server) handleIngest(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.MaxUploadBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(c, extract.ErrTooLarge)
			return
		}
		s.respondError(c, rag.ErrNoFile)
		return
	}
	if header.Size > s.deps.MaxUploadBytes {
		s.respondError(c, extract.ErrTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: open upload: %v", extract.ErrExtraction, err))
		return
	}
	defer file.Close()

	result, err := s.deps.Ingestor.Ingest(c.Request.Context(), rag.IngestRequest{
		Upload: &extract.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		},
		Title: c.PostForm("title"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, IngestResponse{
		Message:    "Document ingested successfully",
		DocumentID: result.DocumentID,
		ChunkCount: result.ChunkCount,
		Filename:   result.Filename,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: queryText is required and must be a string", rag.ErrValidation))
		return
	}

	result, err := s.deps.Answerer.Answer(c.Request.Context(), rag.Query{
		Text:       req.QueryText,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	sources := make([]SourceResponse, len(result.Sources))
	for i, src := range result.Sources {
		sources[i] = SourceResponse{Title: src.Title, Filename: src.Filename}
	}
	c.JSON(http.StatusOK, QueryResponse{Answer: result.Answer, Sources: sources})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(c, fmt.Errorf("%w: limit must be a non-negative integer", rag.ErrValidation))
			return
		}
		limit = n
	}

	docs, err := s.deps.Documents.List(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = toDocumentResponse(doc)
	}
	c.JSON(http.StatusOK, gin.H{"documents": out, "count": len(out)})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.deps.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	resp := toDocumentResponse(doc)
	if s.deps.Chunks != nil {
		n, err := s.deps.Chunks.CountDocumentChunks(c.Request.Context(), doc.DocumentID)
		if err != nil {
			s.logger.Warn("Failed to count indexed chunks", "document_id", doc.DocumentID, "error", err)
		} else {
			resp.IndexedChunks = &n
		}
	}
	c.JSON(http.StatusOK, resp)
}

func toDocumentResponse(doc *docstore.Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:    doc.DocumentID,
		Title:         doc.Title,
		Filename:      doc.Filename,
		OwnerID:       doc.OwnerID,
		Status:        string(doc.Status),
		ChunkCount:    doc.ChunkCount,
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
