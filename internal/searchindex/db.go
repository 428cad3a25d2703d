// Package searchindex implements the relational secondary index (C6):
// a SQLite database (opened through database/sql with the
// tursodatabase/go-libsql driver, the same driver cristian1one's
// virtual-vectorfs uses for its central/workspace databases) holding the
// catalog, stats, and search tables described in the engine spec.
package searchindex

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// Index wraps the search.db connection and its prepared schema.
type Index struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS catalog (
	file_id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	size INTEGER NOT NULL,
	type TEXT NOT NULL,
	format TEXT NOT NULL,
	delimiter TEXT,
	indexed_at INTEGER NOT NULL,
	total_records INTEGER NOT NULL,
	columns TEXT NOT NULL,
	searchable_columns TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stats (
	file_id TEXT PRIMARY KEY,
	stats_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS search (
	auto_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	position INTEGER NOT NULL,
	col0 TEXT,
	col1 TEXT,
	col2 TEXT,
	col3 TEXT,
	col4 TEXT,
	col5 TEXT
);

CREATE INDEX IF NOT EXISTS idx_search_file_id ON search(file_id);
CREATE INDEX IF NOT EXISTS idx_search_col0 ON search(col0);
CREATE INDEX IF NOT EXISTS idx_search_col1 ON search(col1);
CREATE INDEX IF NOT EXISTS idx_search_col2 ON search(col2);
`

// Open opens (creating if absent) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Index, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("searchindex: open %s: %w", path, err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("searchindex: create schema: %w", err)
		}
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database connection.
func (idx *Index) Close() error { return idx.db.Close() }

// DB exposes the underlying *sql.DB for callers (e.g. the indexwriter) that
// need to run their own transaction spanning multiple tables.
func (idx *Index) DB() *sql.DB { return idx.db }
