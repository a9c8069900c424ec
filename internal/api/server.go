// Package api serves the HTTP interface for ingestion and question answering.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

const (
	// DefaultMaxUploadBytes is the upload ceiling when none is configured.
	DefaultMaxUploadBytes int64 = 10 << 20
	// multipartOverhead allows for boundaries and form fields around the file.
	multipartOverhead int64 = 64 << 10
	shutdownTimeout         = 10 * time.Second
)

// Ingestor stores uploaded documents.
type Ingestor interface {
	Ingest(ctx context.Context, req rag.IngestRequest) (*rag.IngestResult, error)
}

// Answerer answers questions over ingested documents.
type Answerer interface {
	Answer(ctx context.Context, q rag.Query) (*rag.AnswerResult, error)
}

// DocumentReader reads document metadata records.
type DocumentReader interface {
	Get(ctx context.Context, documentID string) (*docstore.Document, error)
	List(ctx context.Context, limit int) ([]*docstore.Document, error)
}

// ChunkCounter reports how many chunks of a document the vector store holds.
type ChunkCounter interface {
	CountDocumentChunks(ctx context.Context, documentID string) (uint64, error)
}

// Deps holds everything the router serves.
type Deps struct {
	Ingestor       Ingestor
	Answerer       Answerer
	Documents      DocumentReader
	Chunks         ChunkCounter // Adds indexedChunks to GET /api/documents/:id when set
	HealthChecks   map[string]HealthChecker
	Gatherer       prometheus.Gatherer // Serves /metrics when set
	MCPHandler     http.Handler        // Mounted at /mcp when set
	QueryLimiter   gin.HandlerFunc     // Applied to /api/query when set
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer builds the gin engine and registers all routes.
func NewServer(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.MaxMultipartMemory = deps.MaxUploadBytes

	s := &Server{deps: deps, engine: engine, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.healthHandler)
	if s.deps.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if s.deps.MCPHandler != nil {
		s.engine.Any("/mcp", gin.WrapH(s.deps.MCPHandler))
	}

	api := s.engine.Group("/api")
	api.POST("/ingest", s.handleIngest)

	query := []gin.HandlerFunc{}
	if s.deps.QueryLimiter != nil {
		query = append(query, s.deps.QueryLimiter)
	}
	api.POST("/query", append(query, s.handleQuery)...)

	api.GET("/documents", s.handleListDocuments)
	api.GET("/documents/:id", s.handleGetDocument)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("Request completed",
			"method", c.Request.Method,
			"path", path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}
