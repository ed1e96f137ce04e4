package database

import (
	"context"
	"fmt"
	"strings"
)

// Rows is the subset of a query result the migration runner reads.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Tx is an open transaction.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is a database handle. Queries use $1, $2... placeholders on every engine.
type DB interface {
	// Dialect is the generator dialect name matching this engine.
	Dialect() string
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Open connects to the database named by url: postgres:// and postgresql:// URLs use pgx,
// sqlite:// URLs (or plain paths ending in .db / .sqlite) use go-sqlite3.
func Open(ctx context.Context, url string) (DB, error) {
	kind, conn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "postgres":
		return OpenPostgres(ctx, conn)
	default:
		return OpenSQLite(ctx, conn)
	}
}

// ParseURL splits a database URL into the engine name and its driver connection string.
func ParseURL(url string) (kind, conn string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("DATABASE_URL not set (in .env or environment)")
	}
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres", url, nil
	}
	for _, prefix := range []string{"sqlite://", "sqlite3://"} {
		if strings.HasPrefix(url, prefix) {
			path := strings.TrimPrefix(url, prefix)
			if path == "" {
				return "", "", fmt.Errorf("sqlite URL %q has no file path", url)
			}
			return "sqlite", path, nil
		}
	}
	if strings.HasSuffix(url, ".db") || strings.HasSuffix(url, ".sqlite") {
		return "sqlite", url, nil
	}
	return "", "", fmt.Errorf("unsupported database URL %q (expected postgres://, postgresql:// or sqlite://)", url)
}
