// Package pgstore keeps index entries in PostgreSQL so several server
// instances can share one index.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"repolens/internal/domain"
	"repolens/internal/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS repolens_entries (
	seq      BIGSERIAL,
	repo_id  TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	vector   DOUBLE PRECISION[] NOT NULL,
	content  TEXT NOT NULL,
	metadata JSONB NOT NULL,
	PRIMARY KEY (repo_id, chunk_id)
);
CREATE INDEX IF NOT EXISTS repolens_entries_repo_seq ON repolens_entries (repo_id, seq);
`

type Store struct {
	db *sqlx.DB
}

type entryRow struct {
	ChunkID  string          `db:"chunk_id"`
	Vector   pq.Float64Array `db:"vector"`
	Content  string          `db:"content"`
	Metadata []byte          `db:"metadata"`
}

// Open connects to dsn and creates the entries table when missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, repoID string, entry domain.IndexEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO repolens_entries (repo_id, chunk_id, vector, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (repo_id, chunk_id) DO UPDATE
		SET vector = EXCLUDED.vector, content = EXCLUDED.content, metadata = EXCLUDED.metadata`

	_, err = s.db.ExecContext(ctx, query,
		repoID, entry.ChunkID, pq.Float64Array(entry.Vector), entry.Content, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, repoID string) ([]domain.IndexEntry, error) {
	var rows []entryRow
	query := `
		SELECT chunk_id, vector, content, metadata
		FROM repolens_entries
		WHERE repo_id = $1
		ORDER BY seq`

	if err := s.db.SelectContext(ctx, &rows, query, repoID); err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	entries := make([]domain.IndexEntry, 0, len(rows))
	for _, row := range rows {
		var meta domain.ChunkMetadata
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("corrupted metadata for %s: %w", row.ChunkID, err)
		}
		entries = append(entries, domain.IndexEntry{
			ChunkID:  row.ChunkID,
			Vector:   []float64(row.Vector),
			Content:  row.Content,
			Metadata: meta,
		})
	}
	return entries, nil
}

func (s *Store) Clear(ctx context.Context, repoID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM repolens_entries WHERE repo_id = $1`, repoID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, repoID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM repolens_entries WHERE repo_id = $1`, repoID); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ port.VectorStore = (*Store)(nil)
