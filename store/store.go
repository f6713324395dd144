// Package store owns the SQLite database shared by the response cache,
// the workflow store, and the component store. Timestamps are stored as
// Unix milliseconds so that expiry comparisons are plain integer math.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// Store wraps the shared database handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; serialise access through a
	// single connection instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle to the stores built on top.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS cached_responses (
			id          TEXT PRIMARY KEY,
			cache_key   TEXT NOT NULL UNIQUE,
			url         TEXT NOT NULL,
			kind        TEXT NOT NULL,
			selector    TEXT NOT NULL,
			wait_policy TEXT NOT NULL,
			options     TEXT NOT NULL DEFAULT '',
			data        TEXT NOT NULL,
			metadata    TEXT NOT NULL DEFAULT '{}',
			hit_count   INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			expires_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS workflows (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			description           TEXT NOT NULL DEFAULT '',
			url                   TEXT NOT NULL,
			actions               TEXT NOT NULL,
			tags                  TEXT NOT NULL DEFAULT '',
			created_by            TEXT NOT NULL DEFAULT '',
			created_at            INTEGER NOT NULL,
			updated_at            INTEGER NOT NULL,
			total_executions      INTEGER NOT NULL DEFAULT 0,
			succeeded_executions  INTEGER NOT NULL DEFAULT 0,
			failed_executions     INTEGER NOT NULL DEFAULT 0,
			last_executed_at      INTEGER,
			avg_duration_ms       REAL
		)`,
		`CREATE TABLE IF NOT EXISTS cached_components (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			url        TEXT NOT NULL,
			selector   TEXT NOT NULL,
			html       TEXT NOT NULL,
			css        TEXT NOT NULL DEFAULT '',
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS component_files (
			id           TEXT PRIMARY KEY,
			component_id TEXT NOT NULL,
			file_name    TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			source_url   TEXT NOT NULL DEFAULT '',
			body         BLOB,
			byte_size    INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL,
			FOREIGN KEY (component_id) REFERENCES cached_components(id)
		)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_cached_responses_url ON cached_responses(url)",
		"CREATE INDEX IF NOT EXISTS idx_cached_responses_expires ON cached_responses(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_workflows_tags ON workflows(tags)",
		"CREATE INDEX IF NOT EXISTS idx_workflows_name ON workflows(name)",
		"CREATE INDEX IF NOT EXISTS idx_component_files_component ON component_files(component_id)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
