package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists processing records into a Postgres table keyed by url.
type PostgresStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

var _ ports.CheckpointStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		table: pq.QuoteIdentifier(table),
		now:   time.Now,
	}
}

// EnsureSchema creates the checkpoint table with its uniqueness constraint.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
              url TEXT PRIMARY KEY,
              title TEXT NOT NULL,
              processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: create table: %v", domain.ErrStore, err)
	}
	return nil
}

// Exists reports whether url already has a processing record.
func (s *PostgresStore) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := psql.Select("1").From(s.table).Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: build query: %v", domain.ErrStore, err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: query processed: %v", domain.ErrStore, err)
	}
	return true, nil
}

// RecordProcessed inserts the record; an existing row for url is left untouched.
func (s *PostgresStore) RecordProcessed(ctx context.Context, url, title string) error {
	query, args, err := psql.Insert(s.table).
		Columns("url", "title", "processed_at").
		Values(url, title, s.now().UTC()).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build insert: %v", domain.ErrStore, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert processed: %v", domain.ErrStore, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close(_ context.Context) error {
	return s.db.Close()
}
