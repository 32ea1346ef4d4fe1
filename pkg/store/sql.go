package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style and driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const documentsTable = "documents"

const createDocumentsTable = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// SQLBackend stores documents as rows of a single table keyed by collection.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	sb      squirrel.StatementBuilderType
	now     func() time.Time
}

// OpenSQL opens a database for dialect and prepares the documents table.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dialect, err)
	}

	if dialect == SQLite {
		// A single connection serializes writers and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", dialect, err)
	}

	backend, err := NewSQLBackend(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return backend, nil
}

// NewSQLBackend wraps an open database and creates the documents table if needed.
func NewSQLBackend(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLBackend, error) {
	var sb squirrel.StatementBuilderType
	switch dialect {
	case Postgres:
		sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	case SQLite:
		sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	default:
		return nil, fmt.Errorf("store: unsupported dialect %q", dialect)
	}

	if _, err := db.ExecContext(ctx, createDocumentsTable); err != nil {
		return nil, fmt.Errorf("store: create documents table: %w", err)
	}

	return &SQLBackend{db: db, dialect: dialect, sb: sb, now: time.Now}, nil
}

// Name returns the dialect.
func (b *SQLBackend) Name() string {
	return string(b.dialect)
}

// Load selects the collection's body.
func (b *SQLBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	query, args, err := b.sb.Select("body").
		From(documentsTable).
		Where(squirrel.Eq{"collection": string(c)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build load: %w", err)
	}

	var body string
	if err := b.db.QueryRowContext(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: load %s: %w", c, err)
	}
	return []byte(body), nil
}

// Save upserts the collection's body in one statement.
func (b *SQLBackend) Save(ctx context.Context, c Collection, body []byte) error {
	query, args, err := b.sb.Insert(documentsTable).
		Columns("collection", "body", "updated_at").
		Values(string(c), string(body), b.now().UnixMilli()).
		Suffix("ON CONFLICT (collection) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build save: %w", err)
	}

	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: save %s: %w", c, err)
	}
	return nil
}

// Close closes the database.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
