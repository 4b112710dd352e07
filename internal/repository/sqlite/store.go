// Package sqlite is a single-node backend for history, the research log and
// the knowledge store. Vector search is a brute-force scan.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	user_id    TEXT PRIMARY KEY,
	history    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS knowledge_chunks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	content   TEXT NOT NULL,
	source    TEXT NOT NULL DEFAULT '',
	embedding TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS research_log (
	id                 TEXT PRIMARY KEY,
	created_at         DATETIME NOT NULL,
	user_id            TEXT NOT NULL,
	message_type       TEXT NOT NULL,
	content_descriptor TEXT NOT NULL DEFAULT '',
	media_url          TEXT NOT NULL DEFAULT '',
	analysis           TEXT NOT NULL DEFAULT '',
	retrieved_context  TEXT NOT NULL DEFAULT '',
	final_reply        TEXT NOT NULL DEFAULT '',
	succeeded          INTEGER NOT NULL DEFAULT 0
);
`

// Store owns the SQLite handle shared by the repositories
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file and its schema
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database file path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

func (s *Store) Knowledge() *KnowledgeRepository {
	return &KnowledgeRepository{db: s.db}
}

func (s *Store) Interactions() *InteractionRepository {
	return &InteractionRepository{db: s.db}
}
