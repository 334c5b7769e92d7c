// Package storage persists documents, citation edges, and their links in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DB wraps a SQLite database connection.
//
// Batch operations (extraction, resolution, merge) assume a single writer:
// dedup-hash checks are read-then-write, so overlapping batch runs against
// the same database must be serialized by the caller.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Library documents (papers, posts, slides, notes)
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_type TEXT NOT NULL DEFAULT 'paper',
			title TEXT NOT NULL,
			abstract TEXT,
			year INTEGER,
			venue TEXT,
			authors_json TEXT,
			source_url TEXT,
			pdf_path TEXT,
			text_path TEXT,
			cite_key TEXT UNIQUE,
			status TEXT NOT NULL DEFAULT 'active',
			merged_into INTEGER REFERENCES documents(id),
			created_at TEXT,
			updated_at TEXT
		);

		-- Typed external identifiers; (id_type, id_value) is globally unique
		CREATE TABLE IF NOT EXISTS external_ids (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			id_type TEXT NOT NULL,
			id_value TEXT NOT NULL,
			UNIQUE (id_type, id_value)
		);
		CREATE INDEX IF NOT EXISTS idx_external_ids_document ON external_ids(document_id);

		-- Citation edges; dst_id NULL means unresolved
		CREATE TABLE IF NOT EXISTS citations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			src_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			dst_id INTEGER REFERENCES documents(id) ON DELETE SET NULL,
			raw_cite TEXT,
			dst_key TEXT,
			origin TEXT NOT NULL,
			cite_hash TEXT NOT NULL,
			unmatched_json TEXT,
			UNIQUE (src_id, cite_hash)
		);
		CREATE INDEX IF NOT EXISTS idx_citations_src ON citations(src_id);
		CREATE INDEX IF NOT EXISTS idx_citations_dst ON citations(dst_id);

		CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS document_tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			UNIQUE (document_id, tag_id)
		);

		CREATE TABLE IF NOT EXISTS collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS collection_documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			UNIQUE (collection_id, document_id)
		);

		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			title TEXT
		);
	`

	_, err := db.Exec(schema)
	return err
}

// nowRFC3339 formats the current time the way all timestamps are stored.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableInt64Value converts an int64 to sql.NullInt64, treating zero as NULL.
func nullableInt64Value(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
