package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mike-a-ellis/docqa/internal/storage"
	"github.com/mike-a-ellis/docqa/internal/synthesis"
)

const (
	// DefaultTopK is the number of nearest chunks used as answer context.
	DefaultTopK = 3
	// DefaultRetryDelay is the wait before repeating an empty scoped search.
	DefaultRetryDelay = 3 * time.Second
)

// errEmptySearch signals the retry loop that a scoped search found nothing.
var errEmptySearch = errors.New("empty search result")

// Query is a question, optionally scoped to one document.
type Query struct {
	Text       string
	DocumentID string
}

// Source identifies the document a context record came from.
type Source struct {
	Title    string
	Filename string
}

// AnswerResult is the synthesized answer with the sources used.
type AnswerResult struct {
	Answer  string
	Sources []Source
}

// AnswererConfig holds retrieval settings.
type AnswererConfig struct {
	TopK              int
	RetryDelay        time.Duration
	RequireDocumentID bool
	LLM               synthesis.Config
}

// Answerer runs embed, search, assemble and synthesize for one query.
type Answerer struct {
	embedder    Embedder
	vectors     VectorStore
	synthesizer Synthesizer
	metrics     *Metrics
	cfg         AnswererConfig
	logger      *slog.Logger
}

// NewAnswerer creates an Answerer. metrics may be nil.
func NewAnswerer(
	embedder Embedder,
	vectors VectorStore,
	synthesizer Synthesizer,
	metrics *Metrics,
	cfg AnswererConfig,
	logger *slog.Logger,
) *Answerer {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder:    embedder,
		vectors:     vectors,
		synthesizer: synthesizer,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
}

// Answer returns a cited answer for q. No partial answer is returned on failure.
func (a *Answerer) Answer(ctx context.Context, q Query) (*AnswerResult, error) {
	start := time.Now()
	result, err := a.answer(ctx, q)
	a.metrics.query(queryOutcome(err), time.Since(start))
	if err != nil {
		a.logger.Debug("Query state", "state", "failed", "error", err)
		return nil, err
	}
	a.logger.Debug("Query state", "state", "done", "sources", len(result.Sources))
	return result, nil
}

func (a *Answerer) answer(ctx context.Context, q Query) (*AnswerResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrValidation)
	}
	documentID := strings.TrimSpace(q.DocumentID)
	if documentID == "" && a.cfg.RequireDocumentID {
		return nil, fmt.Errorf("%w: document id is required", ErrValidation)
	}
	logger := a.logger.With("document_id", documentID)

	logger.Debug("Query state", "state", "embedding")
	vec, err := a.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	logger.Debug("Query state", "state", "searching")
	matches, err := a.search(ctx, logger, vec, documentID)
	if err != nil {
		return nil, err
	}

	logger.Debug("Query state", "state", "context_assembly", "matches", len(matches))
	passages, err := assemble(matches)
	if err != nil {
		return nil, err
	}

	logger.Debug("Query state", "state", "synthesizing")
	out, err := a.synthesizer.Synthesize(ctx, synthesis.Request{
		Config:   a.cfg.LLM,
		Query:    q.Text,
		Passages: passages,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	used := min(max(out.PassagesUsed, 0), len(passages))
	sources := make([]Source, used)
	for i, p := range passages[:used] {
		sources[i] = Source{Title: p.Title, Filename: p.Filename}
	}

	return &AnswerResult{Answer: out.Answer, Sources: sources}, nil
}

// search runs the top-K query. An empty scoped result is retried exactly once
// after a fixed delay; an empty unscoped result fails immediately. The
// document filter is never dropped.
func (a *Answerer) search(ctx context.Context, logger *slog.Logger, vec []float32, documentID string) ([]*storage.ScoredChunk, error) {
	var matches []*storage.ScoredChunk

	operation := func() error {
		found, err := a.vectors.Search(ctx, vec, a.cfg.TopK, documentID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrVectorStore, err))
		}
		if len(found) == 0 {
			if documentID == "" {
				return backoff.Permanent(errEmptySearch)
			}
			return errEmptySearch
		}
		matches = found
		return nil
	}

	notify := func(_ error, wait time.Duration) {
		a.metrics.searchRetry()
		logger.Info("Scoped search returned no matches, retrying", "state", "retrying", "delay", wait)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.cfg.RetryDelay), 1),
		ctx,
	)
	err := backoff.RetryNotify(operation, policy, notify)
	switch {
	case err == nil:
		return matches, nil
	case errors.Is(err, errEmptySearch):
		if documentID != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoMatches, IndexingHint)
		}
		return nil, ErrNoMatches
	default:
		return nil, err
	}
}

// assemble orders matches by descending score, keeping store order for ties,
// and maps them to passages. A match without text fails the whole query.
func assemble(matches []*storage.ScoredChunk) ([]synthesis.Passage, error) {
	ordered := slices.Clone(matches)
	slices.SortStableFunc(ordered, func(x, y *storage.ScoredChunk) int {
		switch {
		case x.Score > y.Score:
			return -1
		case x.Score < y.Score:
			return 1
		default:
			return 0
		}
	})

	passages := make([]synthesis.Passage, 0, len(ordered))
	for _, m := range ordered {
		if m.Chunk == nil || slices.Contains(m.MissingFields, storage.PayloadText) {
			return nil, fmt.Errorf("%w: missing text", ErrInvalidMetadata)
		}
		passages = append(passages, synthesis.Passage{
			Title:    m.Chunk.Title,
			Filename: m.Chunk.Filename,
			Text:     m.Chunk.Text,
		})
	}
	return passages, nil
}

func queryOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNoMatches):
		return OutcomeNoMatch
	case errors.Is(err, ErrValidation):
		return OutcomeInvalid
	default:
		return OutcomeFailure
	}
}
