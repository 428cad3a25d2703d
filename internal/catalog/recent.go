// Package catalog implements the Catalog (C5): recent-file-list persistence
// and legacy-sidecar migration/purge on top of the relational secondary
// index (internal/searchindex), which owns the durable file-id → metadata
// mapping itself.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MaxRecent bounds the recent list, per spec.
const MaxRecent = 20

// RecentEntry is one catalog-entry-shaped row of recent.json.
type RecentEntry struct {
	FileID          string `json:"fileId"`
	Path            string `json:"path"`
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	Format          string `json:"format"`
	IndexedAtUnixMS int64  `json:"indexedAt"`
	TotalRecords    int64  `json:"totalRecords"`
}

// RecentList is the file-backed, most-recent-first, file-id-deduplicated
// list described in spec §3 "Recent List". It is a convenience cache over
// the catalog table (matching the teacher's saveMeta JSON-sidecar
// convention) rather than a source of truth: the search.db catalog table
// remains authoritative, and RecentList is kept in sync by every Touch/
// Remove/Clear call the engine API makes around its own catalog writes.
type RecentList struct {
	mu      sync.Mutex
	path    string
	entries []RecentEntry
}

// OpenRecentList loads recent.json from indexDir, treating a missing file
// as an empty list.
func OpenRecentList(indexDir string) (*RecentList, error) {
	rl := &RecentList{path: filepath.Join(indexDir, "recent.json")}
	data, err := os.ReadFile(rl.path)
	if errors.Is(err, os.ErrNotExist) {
		return rl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", rl.path, err)
	}
	if err := json.Unmarshal(data, &rl.entries); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal %s: %w", rl.path, err)
	}
	return rl, nil
}

// Entries returns a snapshot of the current list, most-recent-first.
func (rl *RecentList) Entries() []RecentEntry {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	out := make([]RecentEntry, len(rl.entries))
	copy(out, rl.entries)
	return out
}

// Touch moves entry to the front of the list, deduplicating by file-id and
// truncating to MaxRecent, then persists the result.
func (rl *RecentList) Touch(entry RecentEntry) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	filtered := make([]RecentEntry, 0, len(rl.entries)+1)
	filtered = append(filtered, entry)
	for _, e := range rl.entries {
		if e.FileID != entry.FileID {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > MaxRecent {
		filtered = filtered[:MaxRecent]
	}
	rl.entries = filtered
	return rl.save()
}

// Remove drops the entry for fileID, if present, and persists the result.
func (rl *RecentList) Remove(fileID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	out := rl.entries[:0]
	for _, e := range rl.entries {
		if e.FileID != fileID {
			out = append(out, e)
		}
	}
	rl.entries = out
	return rl.save()
}

// Clear empties the list and persists the result.
func (rl *RecentList) Clear() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.entries = nil
	return rl.save()
}

func (rl *RecentList) save() error {
	data, err := json.MarshalIndent(rl.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal recent list: %w", err)
	}
	if err := os.WriteFile(rl.path, data, 0644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", rl.path, err)
	}
	return nil
}
