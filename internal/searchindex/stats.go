package searchindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// ColumnStats is one declared column's distribution summary.
type ColumnStats struct {
	Column          string         `json:"column"`
	Type            string         `json:"type"`
	ApproxDistinct  int64          `json:"approxDistinct"`
	TopValues       []ValueCount   `json:"topValues"`
}

// ValueCount is one (value, occurrence count) pair.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// StatsEntry is the full per-file stats payload, one ColumnStats per
// covered column (up to the first 10 declared columns).
type StatsEntry struct {
	FileID  string        `json:"fileId"`
	Columns []ColumnStats `json:"columns"`
}

// PutStats inserts or replaces the stats row within an existing transaction.
func PutStats(tx *sql.Tx, entry StatsEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("searchindex: marshal stats: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO stats (file_id, stats_json) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET stats_json=excluded.stats_json
	`, entry.FileID, string(data))
	if err != nil {
		return fmt.Errorf("searchindex: put stats: %w", err)
	}
	return nil
}

// GetStats fetches the stats entry for fileID, returning (nil, nil) when absent.
func (idx *Index) GetStats(fileID string) (*StatsEntry, error) {
	var data string
	err := idx.db.QueryRow(`SELECT stats_json FROM stats WHERE file_id = ?`, fileID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searchindex: get stats: %w", err)
	}
	var entry StatsEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("searchindex: unmarshal stats: %w", err)
	}
	return &entry, nil
}
