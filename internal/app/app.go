// Package app wires configuration into the running docqa components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/mike-a-ellis/docqa/internal/api"
	"github.com/mike-a-ellis/docqa/internal/chunk"
	"github.com/mike-a-ellis/docqa/internal/config"
	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/embedding"
	"github.com/mike-a-ellis/docqa/internal/extract"
	ghclient "github.com/mike-a-ellis/docqa/internal/github"
	"github.com/mike-a-ellis/docqa/internal/indexer"
	"github.com/mike-a-ellis/docqa/internal/markdown"
	mcpserver "github.com/mike-a-ellis/docqa/internal/mcp"
	"github.com/mike-a-ellis/docqa/internal/rag"
	"github.com/mike-a-ellis/docqa/internal/storage"
	"github.com/mike-a-ellis/docqa/internal/synthesis"
	"github.com/mike-a-ellis/docqa/internal/tokens"
)

// Version is reported by the MCP server and the CLI.
var Version = "dev"

// ErrGitHubSourceMissing is returned when import-github has no repository configured.
var ErrGitHubSourceMissing = errors.New("GITHUB_OWNER and GITHUB_REPO must be set")

// App holds every long-lived component.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Vectors   *storage.QdrantStorage
	Pool      *pgxpool.Pool
	Documents *docstore.Store
	Registry  *prometheus.Registry
	Metrics   *rag.Metrics
	Ingestor  *rag.Ingestor
	Answerer  *rag.Answerer
	Purger    *rag.Purger
	Redis     *redis.Client
}

// New connects to Qdrant, Postgres and the model provider and builds the
// coordinators. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	openaiClient, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		return nil, err
	}

	a.Vectors, err = storage.NewQdrantStorage(ctx, QdrantConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := a.Vectors.EnsureCollection(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	a.Pool, err = docstore.Connect(ctx, cfg.Database.URL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Documents = docstore.New(a.Pool, logger)

	if cfg.Server.RedisURL != "" {
		a.Redis, err = NewRedisClient(cfg.Server.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics, err = rag.NewMetrics(a.Registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	embedder := embedding.NewEmbedder(openaiClient, cfg.Embedding.Model, cfg.Embedding.Dimension, cfg.Embedding.BatchSize)
	counter := tokens.NewCounter(cfg.Completion.Model, logger)
	synthesizer := synthesis.NewSynthesizer(openaiClient.Client(), counter)
	extractor := extract.NewExtractor(afero.NewOsFs(), cfg.Ingest.TempDir, cfg.Ingest.MaxUploadBytes, logger)

	a.Ingestor = rag.NewIngestor(
		extractor,
		chunk.NewChunker(cfg.Ingest.ChunkMaxLength),
		embedder,
		a.Vectors,
		a.Documents,
		a.Metrics,
		IngestorConfig(cfg),
		logger,
	)
	a.Answerer = rag.NewAnswerer(embedder, a.Vectors, synthesizer, a.Metrics, AnswererConfig(cfg), logger)
	a.Purger = rag.NewPurger(a.Vectors, a.Documents, logger)

	logger.Debug("Application wired", "config", cfg.Redacted())
	return a, nil
}

// Close releases connections. It is safe on a partially built App.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Vectors != nil {
		_ = a.Vectors.Close()
	}
}

// MCPServer builds the MCP tool server over the coordinators.
func (a *App) MCPServer() *mcpserver.Server {
	return mcpserver.NewServer(&mcpserver.Config{
		Answerer:  a.Answerer,
		Documents: a.Documents,
		Chunks:    a.Vectors,
		Version:   Version,
		Logger:    a.Logger,
	})
}

// APIServer builds the HTTP front end, including /mcp and the optional
// daily query cap.
func (a *App) APIServer() (*api.Server, error) {
	deps := api.Deps{
		Ingestor:       a.Ingestor,
		Answerer:       a.Answerer,
		Documents:      a.Documents,
		Chunks:         a.Vectors,
		HealthChecks:   a.HealthChecks(),
		Gatherer:       a.Registry,
		MCPHandler:     mcpserver.NewHTTPHandler(a.MCPServer(), nil),
		MaxUploadBytes: a.Config.Ingest.MaxUploadBytes,
		Logger:         a.Logger,
	}
	if a.Config.Server.QueriesPerDay > 0 {
		mw, err := api.NewQueryLimiter(a.Config.Server.QueriesPerDay, a.Redis)
		if err != nil {
			return nil, fmt.Errorf("query limiter: %w", err)
		}
		deps.QueryLimiter = mw
	}
	return api.NewServer(deps), nil
}

// HealthChecks returns the dependency checks served at /health.
func (a *App) HealthChecks() map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{}
	if a.Vectors != nil {
		checks["qdrant"] = a.Vectors
	}
	if a.Documents != nil {
		checks["postgres"] = api.HealthFunc(a.Documents.Ping)
	}
	if a.Redis != nil {
		checks["redis"] = api.HealthFunc(func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

// ImportGitHub ingests every markdown file under the configured repository path.
func (a *App) ImportGitHub(ctx context.Context) (*indexer.IndexResult, error) {
	source, err := GitHubSource(a.Config)
	if err != nil {
		return nil, err
	}
	client, err := ghclient.NewClient(a.Config.GitHub.Token, a.Config.GitHub.APIURL)
	if err != nil {
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}
	a.Logger.Info("Importing from GitHub", "source", source.String())
	pipeline := indexer.NewPipeline(ghclient.NewFetcher(client, source), a.Ingestor, markdown.NewTitler(), a.Logger)
	return pipeline.IndexAll(ctx)
}

