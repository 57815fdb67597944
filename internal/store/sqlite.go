// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite.
// ABOUTME: Opens the database, enables WAL, and creates the schema on first use.

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema is
// created automatically if it doesn't exist; parent directories are created
// if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for concurrent readers alongside the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS call_log (
			call_id TEXT PRIMARY KEY,
			tool_id TEXT NOT NULL,
			caller TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL,
			status INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			duration_us INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_call_log_tool
			ON call_log(tool_id, started_at);

		CREATE INDEX IF NOT EXISTS idx_call_log_caller
			ON call_log(caller, started_at);

		CREATE TABLE IF NOT EXISTS api_tokens (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL,
			scopes_json TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			created_by TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_api_tokens_identity
			ON api_tokens(identity);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
