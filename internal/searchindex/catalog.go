package searchindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// CatalogRow is one row of the catalog table.
type CatalogRow struct {
	FileID            string
	Path              string
	Name              string
	Size              int64
	Type              string
	Format            string
	Delimiter         string
	IndexedAtUnixMS   int64
	TotalRecords      int64
	Columns           []string
	SearchableColumns []string
}

// PutCatalog inserts or replaces a catalog row within an existing transaction.
func PutCatalog(tx *sql.Tx, row CatalogRow) error {
	columnsJSON, err := json.Marshal(row.Columns)
	if err != nil {
		return fmt.Errorf("searchindex: marshal columns: %w", err)
	}
	searchableJSON, err := json.Marshal(row.SearchableColumns)
	if err != nil {
		return fmt.Errorf("searchindex: marshal searchable columns: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO catalog (file_id, path, name, size, type, format, delimiter, indexed_at, total_records, columns, searchable_columns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			path=excluded.path, name=excluded.name, size=excluded.size, type=excluded.type,
			format=excluded.format, delimiter=excluded.delimiter, indexed_at=excluded.indexed_at,
			total_records=excluded.total_records, columns=excluded.columns, searchable_columns=excluded.searchable_columns
	`, row.FileID, row.Path, row.Name, row.Size, row.Type, row.Format, row.Delimiter,
		row.IndexedAtUnixMS, row.TotalRecords, string(columnsJSON), string(searchableJSON))
	if err != nil {
		return fmt.Errorf("searchindex: put catalog: %w", err)
	}
	return nil
}

// GetCatalog fetches one catalog row, returning (nil, nil) when absent.
func (idx *Index) GetCatalog(fileID string) (*CatalogRow, error) {
	row := idx.db.QueryRow(`
		SELECT file_id, path, name, size, type, format, delimiter, indexed_at, total_records, columns, searchable_columns
		FROM catalog WHERE file_id = ?`, fileID)
	return scanCatalogRow(row)
}

// ListRecent returns catalog rows ordered by indexed_at descending, capped at limit.
func (idx *Index) ListRecent(limit int) ([]CatalogRow, error) {
	rows, err := idx.db.Query(`
		SELECT file_id, path, name, size, type, format, delimiter, indexed_at, total_records, columns, searchable_columns
		FROM catalog ORDER BY indexed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("searchindex: list recent: %w", err)
	}
	defer rows.Close()

	var out []CatalogRow
	for rows.Next() {
		r, err := scanCatalogRow(rows)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, rows.Err()
}

// ListAll returns every catalog row, unordered. Used by startup
// housekeeping (legacy migration, stale-row purge) rather than by the
// list_recent request, which wants the bounded, ordered form above.
func (idx *Index) ListAll() ([]CatalogRow, error) {
	rows, err := idx.db.Query(`
		SELECT file_id, path, name, size, type, format, delimiter, indexed_at, total_records, columns, searchable_columns
		FROM catalog`)
	if err != nil {
		return nil, fmt.Errorf("searchindex: list all: %w", err)
	}
	defer rows.Close()

	var out []CatalogRow
	for rows.Next() {
		r, err := scanCatalogRow(rows)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCatalogRow(s rowScanner) (*CatalogRow, error) {
	var row CatalogRow
	var delimiter sql.NullString
	var columnsJSON, searchableJSON string
	err := s.Scan(&row.FileID, &row.Path, &row.Name, &row.Size, &row.Type, &row.Format,
		&delimiter, &row.IndexedAtUnixMS, &row.TotalRecords, &columnsJSON, &searchableJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searchindex: scan catalog: %w", err)
	}
	row.Delimiter = delimiter.String
	if err := json.Unmarshal([]byte(columnsJSON), &row.Columns); err != nil {
		return nil, fmt.Errorf("searchindex: unmarshal columns: %w", err)
	}
	if err := json.Unmarshal([]byte(searchableJSON), &row.SearchableColumns); err != nil {
		return nil, fmt.Errorf("searchindex: unmarshal searchable columns: %w", err)
	}
	return &row, nil
}

// DeleteFile removes every catalog/stats/search row for fileID within a
// single transaction.
func (idx *Index) DeleteFile(fileID string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("searchindex: begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM catalog WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("searchindex: delete catalog: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM stats WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("searchindex: delete stats: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM search WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("searchindex: delete search rows: %w", err)
	}
	return tx.Commit()
}

// ClearAll deletes every row from every table.
func (idx *Index) ClearAll() error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("searchindex: begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"catalog", "stats", "search"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("searchindex: clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
