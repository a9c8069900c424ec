package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/docqa/internal/config"
)

func TestComponentConfigs(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Dimension = 1536
	cfg.Qdrant.UseTLS = true
	cfg.Ingest.Workers = 4
	cfg.Retrieval.SearchRetryDelay = 500 * time.Millisecond
	cfg.Retrieval.RequireDocumentID = true
	cfg.Completion.Temperature = 0.1

	q := QdrantConfig(cfg)
	assert.Equal(t, 1536, q.Dimension)
	assert.Equal(t, "documents", q.Collection)
	assert.True(t, q.UseTLS)

	ing := IngestorConfig(cfg)
	assert.Equal(t, 4, ing.Workers)
	assert.Equal(t, 0, ing.BatchSize)
	assert.Equal(t, cfg.Ingest.OwnerID, ing.OwnerID)

	ans := AnswererConfig(cfg)
	assert.Equal(t, 3, ans.TopK)
	assert.Equal(t, 500*time.Millisecond, ans.RetryDelay)
	assert.True(t, ans.RequireDocumentID)
	assert.Equal(t, "gpt-4o", ans.LLM.Model)
	assert.InDelta(t, 0.1, ans.LLM.Temperature, 1e-9)
	assert.Equal(t, 3000, ans.LLM.ContextTokenBudget)
}

func TestGitHubSource(t *testing.T) {
	cfg := config.Default()
	_, err := GitHubSource(cfg)
	assert.ErrorIs(t, err, ErrGitHubSourceMissing)

	cfg.GitHub.Owner = "acme"
	cfg.GitHub.Repo = "handbook"
	cfg.GitHub.Path = "docs"
	src, err := GitHubSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "acme/handbook/docs", src.String())
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Ping(context.Background()).Err())

	_, err = NewRedisClient("not a url")
	assert.Error(t, err)
}

func TestHealthChecks_OnlyConfiguredDependencies(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	a := &App{Config: config.Default(), Redis: client}
	checks := a.HealthChecks()
	require.Len(t, checks, 1)
	assert.NoError(t, checks["redis"].Health(context.Background()))


	unreachable, err := NewRedisClient("redis://127.0.0.1:1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = unreachable.Close() })
	a.Redis = unreachable
	assert.Error(t, a.HealthChecks()["redis"].Health(context.Background()))
}
