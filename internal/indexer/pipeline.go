package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/github"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

// IndexResult contains statistics about an import.
type IndexResult struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	Documents      []IndexedDoc
	FailedDocs     []FailedDoc
	CommitSHA      string
	Duration       time.Duration
}

// IndexedDoc records one successfully ingested file.
type IndexedDoc struct {
	Path       string
	DocumentID string
	Title      string
	ChunkCount int
}

// FailedDoc represents a document that failed to index.
type FailedDoc struct {
	Path   string
	Reason string
}

// DocFetcher lists and downloads markdown files.
type DocFetcher interface {
	ListDocs(ctx context.Context) ([]string, error)
	FetchDoc(ctx context.Context, relativePath string) (*github.FetchedDoc, error)
	GetLatestCommitSHA(ctx context.Context) (string, error)
}

// Ingestor stores one document.
type Ingestor interface {
	Ingest(ctx context.Context, req rag.IngestRequest) (*rag.IngestResult, error)
}

// Titler derives a title from markdown source.
type Titler interface {
	Title(source []byte) string
}

// Pipeline imports every markdown file from a repository directory.
type Pipeline struct {
	fetcher  DocFetcher
	ingestor Ingestor
	titler   Titler
	logger   *slog.Logger
}

// NewPipeline creates a new import pipeline with the given components.
func NewPipeline(fetcher DocFetcher, ingestor Ingestor, titler Titler, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:  fetcher,
		ingestor: ingestor,
		titler:   titler,
		logger:   logger,
	}
}

// IndexAll fetches all documents and ingests each one as plain text.
// A file that fails is recorded in FailedDocs and does not stop the import.
func (p *Pipeline) IndexAll(ctx context.Context) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	commitSHA, err := p.fetcher.GetLatestCommitSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("get commit SHA: %w", err)
	}
	result.CommitSHA = commitSHA
	p.logger.Info("Starting import", "commit", commitSHA)

	paths, err := p.fetcher.ListDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "count", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		indexed, err := p.processDocument(ctx, path)
		if err != nil {
			p.logger.Warn("Failed to process document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Path:   path,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += indexed.ChunkCount
		result.Documents = append(result.Documents, *indexed)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Import complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result, nil
}

// processDocument fetches one file and hands it to the ingestor.
func (p *Pipeline) processDocument(ctx context.Context, path string) (*IndexedDoc, error) {
	fetched, err := p.fetcher.FetchDoc(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	p.logger.Debug("Fetched document", "path", path, "size", len(fetched.Content))

	title := p.titler.Title([]byte(fetched.Content))
	if title == "" {
		title = path
	}

	res, err := p.ingestor.Ingest(ctx, rag.IngestRequest{
		Upload: &extract.Upload{
			Filename:    fetched.Filename(),
			ContentType: extract.MIMEPlainText,
			Body:        strings.NewReader(fetched.Content),
		},
		Title: title,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	p.logger.Info("Indexed document", "path", path, "document_id", res.DocumentID, "chunks", res.ChunkCount)
	return &IndexedDoc{
		Path:       path,
		DocumentID: res.DocumentID,
		Title:      res.Title,
		ChunkCount: res.ChunkCount,
	}, nil
}
