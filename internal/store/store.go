// Package store provides a SQLite-backed conversation history store for the
// RAG engine. Each knowledge-base collection has its own conversation thread
// of question/answer exchanges. Exchanges persist across process restarts and
// are injected into the chat context on conversation-aware queries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Exchange is one completed question/answer turn.
type Exchange struct {
	// Question is the user's query text.
	Question string
	// Answer is the generated answer text.
	Answer string
	// CreatedAt is when the exchange was persisted.
	CreatedAt time.Time
}

// HistoryStore persists and retrieves conversation exchanges keyed by
// collection name. Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Append persists a completed exchange for the given collection.
	Append(ctx context.Context, collection, question, answer string) error
	// Recent returns the most recent n exchanges for the collection, ordered
	// oldest-first so they can be rendered into the prompt directly. If fewer
	// than n exchanges exist, all are returned.
	Recent(ctx context.Context, collection string, n int) ([]Exchange, error)
	// Clear deletes all exchanges for the collection.
	Clear(ctx context.Context, collection string) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a HistoryStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the conversation history
// database. It resolves to ~/.devrag/history.db, creating the directory if
// needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".devrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS exchanges (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    collection   TEXT    NOT NULL,
    question     TEXT    NOT NULL,
    answer       TEXT    NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_exchanges_collection_created
    ON exchanges (collection, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a completed exchange for the given collection.
func (s *SQLiteStore) Append(ctx context.Context, collection, question, answer string) error {
	const q = `INSERT INTO exchanges (collection, question, answer, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, collection, question, answer, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n exchanges for the collection, ordered
// oldest-first. Uses a subquery to select the tail then re-order for injection.
func (s *SQLiteStore) Recent(ctx context.Context, collection string, n int) ([]Exchange, error) {
	const q = `
SELECT question, answer, created_at FROM (
    SELECT id, question, answer, created_at
    FROM   exchanges
    WHERE  collection = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, collection, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		var ts int64
		if err := rows.Scan(&e.Question, &e.Answer, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return exchanges, nil
}

// Clear deletes all exchanges for the collection.
func (s *SQLiteStore) Clear(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
