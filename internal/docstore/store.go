package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableName       = "documents"
	defaultPingWait = 3 * time.Second
	// DefaultListLimit caps List when the caller passes a non-positive limit.
	DefaultListLimit = 50
)

var documentColumns = []string{
	"id",
	"document_id",
	"owner_id",
	"title",
	"filename",
	"status",
	"chunk_count",
	"failure_reason",
	"created_at",
	"updated_at",
}

// DB is the subset of pgx used by the store. Both *pgxpool.Pool and pgxmock
// pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store persists document records in Postgres.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New constructs a Store over an existing connection.
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Connect opens a pgx pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("docstore: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingWait)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	return pool, nil
}

func selectDocuments() squirrel.SelectBuilder {
	return squirrel.
		Select(documentColumns...).
		From(tableName).
		PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a record in the indexing state and returns it.
func (s *Store) Create(ctx context.Context, in NewDocument) (*Document, error) {
	if strings.TrimSpace(in.DocumentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidDocument)
	}
	query, args, err := squirrel.
		Insert(tableName).
		Columns("document_id", "owner_id", "title", "filename", "status").
		Values(in.DocumentID, in.OwnerID, in.Title, in.Filename, string(StatusIndexing)).
		Suffix("RETURNING " + strings.Join(documentColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	doc, err := scanDocument(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	s.logger.Debug("document record created", "document_id", doc.DocumentID)
	return doc, nil
}

// MarkComplete records a successful ingestion with its final chunk count.
func (s *Store) MarkComplete(ctx context.Context, documentID string, chunkCount int) error {
	return s.updateStatus(ctx, documentID, map[string]any{
		"status":         string(StatusComplete),
		"chunk_count":    chunkCount,
		"failure_reason": "",
	})
}

// MarkIncomplete records a failed ingestion. chunkCount is the number of
// chunks stored before the failure.
func (s *Store) MarkIncomplete(ctx context.Context, documentID string, chunkCount int, reason string) error {
	return s.updateStatus(ctx, documentID, map[string]any{
		"status":         string(StatusIncomplete),
		"chunk_count":    chunkCount,
		"failure_reason": reason,
	})
}

func (s *Store) updateStatus(ctx context.Context, documentID string, fields map[string]any) error {
	query, args, err := squirrel.
		Update(tableName).
		SetMap(fields).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document %s: %w", documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Get returns the record for documentID.
func (s *Store) Get(ctx context.Context, documentID string) (*Document, error) {
	query, args, err := selectDocuments().
		Where(squirrel.Eq{"document_id": documentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	doc, err := scanDocument(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	return doc, nil
}

// List returns the most recently created records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query, args, err := selectDocuments().
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Delete removes the record for documentID.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	query, args, err := squirrel.
		Delete(tableName).
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingWait)
	defer cancel()
	if err := s.db.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc    Document
		status string
	)
	err := row.Scan(
		&doc.ID,
		&doc.DocumentID,
		&doc.OwnerID,
		&doc.Title,
		&doc.Filename,
		&status,
		&doc.ChunkCount,
		&doc.FailureReason,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = Status(status)
	return &doc, nil
}
