package searchindex

import (
	"database/sql"
	"fmt"
)

// SearchRow is one row to be inserted into the search table.
type SearchRow struct {
	FileID     string
	RowIndex   int64
	Position   int64
	Projection []string // length 0..6, already lowercased/pipe-stripped
}

// InsertSearchRow inserts one row of the search table within tx. Projection
// entries beyond len(Projection) are written as SQL NULL.
func InsertSearchRow(tx *sql.Tx, row SearchRow) error {
	var cols [6]interface{}
	for i := 0; i < 6; i++ {
		if i < len(row.Projection) {
			cols[i] = row.Projection[i]
		} else {
			cols[i] = nil
		}
	}
	_, err := tx.Exec(`
		INSERT INTO search (file_id, row_index, position, col0, col1, col2, col3, col4, col5)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.FileID, row.RowIndex, row.Position, cols[0], cols[1], cols[2], cols[3], cols[4], cols[5])
	if err != nil {
		return fmt.Errorf("searchindex: insert search row: %w", err)
	}
	return nil
}

// Begin starts a transaction for a single indexing job's writes.
func (idx *Index) Begin() (*sql.Tx, error) {
	tx, err := idx.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("searchindex: begin: %w", err)
	}
	return tx, nil
}
