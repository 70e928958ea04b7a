// Package store provides the SQLite-backed durable note store.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ref         TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT 'note' CHECK (type IN ('note', 'bib')),
	parent_id   INTEGER REFERENCES notes(id),
	order_index INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_parent ON notes(parent_id);

-- One order_index per sibling scope. The scope key collapses NULL parents so
-- that root notes and bib entries each share a single domain; a concurrent
-- allocation race surfaces as a constraint violation here or on ref.
CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_scope_order
	ON notes(type, COALESCE(parent_id, 0), order_index);

-- Highest order_index ever allocated per sibling scope. Keeps allocation
-- monotonic even after the highest-numbered sibling is deleted: a freed
-- order_index is never handed out again.
CREATE TABLE IF NOT EXISTS ref_counters (
	scope TEXT PRIMARY KEY,
	last  INTEGER NOT NULL
);
`

// DB wraps a sql.DB with note store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isConstraintViolation reports whether err is a SQLite uniqueness or other
// constraint failure.
func isConstraintViolation(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint
}
