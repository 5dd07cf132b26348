// Package storage implements the checkpoint store on MongoDB or Postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	_ "github.com/lib/pq" // postgres driver

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

// Store is a checkpoint store with a lifecycle.
type Store interface {
	ports.CheckpointStore
	Close(ctx context.Context) error
}

// Open selects the backend from the connection string scheme. For Postgres the
// collection name is used as the table name and the database comes from uri.
func Open(ctx context.Context, uri, database, collection string, log *slog.Logger) (Store, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: parse connection string: %v", domain.ErrStore, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, uri, database, collection, log)
	case "postgres", "postgresql":
		return openPostgres(ctx, uri, collection)
	default:
		return nil, fmt.Errorf("%w: unsupported store scheme %q", domain.ErrStore, u.Scheme)
	}
}

func openPostgres(ctx context.Context, uri, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", domain.ErrStore, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrStore, err)
	}

	store := NewPostgresStore(db, table)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
