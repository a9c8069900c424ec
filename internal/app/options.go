package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mike-a-ellis/docqa/internal/config"
	ghclient "github.com/mike-a-ellis/docqa/internal/github"
	"github.com/mike-a-ellis/docqa/internal/rag"
	"github.com/mike-a-ellis/docqa/internal/storage"
	"github.com/mike-a-ellis/docqa/internal/synthesis"
)

// QdrantConfig maps configuration onto the vector store settings.
func QdrantConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
		Dimension:  cfg.Embedding.Dimension,
	}
}

func IngestorConfig(cfg *config.Config) rag.IngestorConfig {
	return rag.IngestorConfig{
		OwnerID:   cfg.Ingest.OwnerID,
		Workers:   cfg.Ingest.Workers,
		BatchSize: cfg.Ingest.BatchSize,
	}
}

func AnswererConfig(cfg *config.Config) rag.AnswererConfig {
	return rag.AnswererConfig{
		TopK:              cfg.Retrieval.TopK,
		RetryDelay:        cfg.Retrieval.SearchRetryDelay,
		RequireDocumentID: cfg.Retrieval.RequireDocumentID,
		LLM: synthesis.Config{
			Model:              cfg.Completion.Model,
			Temperature:        cfg.Completion.Temperature,
			MaxTokens:          cfg.Completion.MaxTokens,
			ContextTokenBudget: cfg.Completion.ContextTokenBudget,
		},
	}
}

// GitHubSource returns the configured import source.
func GitHubSource(cfg *config.Config) (ghclient.Source, error) {
	gh := cfg.GitHub
	if gh.Owner == "" || gh.Repo == "" {
		return ghclient.Source{}, ErrGitHubSourceMissing
	}
	return ghclient.Source{Owner: gh.Owner, Repo: gh.Repo, BasePath: gh.Path, Ref: gh.Ref}, nil
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
