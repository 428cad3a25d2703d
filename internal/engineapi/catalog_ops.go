package engineapi

import (
	"fmt"
	"path/filepath"

	"github.com/dataexplorer/engine/internal/catalog"
	"github.com/dataexplorer/engine/internal/fingerprint"
	"github.com/dataexplorer/engine/internal/sniff"
)

// OpenFileInfo sniffs and, if previously indexed, resolves the catalog
// entry for path. indexed=false means the file has never been indexed (or
// was, under a different fingerprint) and start_index must be called
// before page/search/get_record will work.
func (e *Engine) OpenFileInfo(path string) (FileInfo, error) {
	if err := validatePath(path); err != nil {
		return FileInfo{}, err
	}

	id, size, _, err := fingerprint.OfFile(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("engineapi: fingerprint %s: %w", path, err)
	}

	row, err := e.idx.GetCatalog(id)
	if err != nil {
		return FileInfo{}, fmt.Errorf("engineapi: lookup catalog for %s: %w", path, err)
	}
	if row != nil {
		return fileInfoFromCatalog(*row), nil
	}

	sniffed, err := sniff.Sniff(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("engineapi: sniff %s: %w", path, err)
	}
	delimiter := ""
	if sniffed.Format == sniff.FormatCSV {
		delimiter = string(sniffed.Delimiter)
	}
	return FileInfo{
		FileID:    id,
		Path:      path,
		Name:      filepath.Base(path),
		Size:      size,
		Format:    string(sniffed.Format),
		Delimiter: delimiter,
		Indexed:   false,
	}, nil
}

// ListRecent returns up to 20 catalog entries, most-recent-first.
func (e *Engine) ListRecent() []FileInfo {
	entries := e.recent.Entries()
	out := make([]FileInfo, len(entries))
	for i, r := range entries {
		out[i] = FileInfo{
			FileID:          r.FileID,
			Path:            r.Path,
			Name:            r.Name,
			Size:            r.Size,
			Format:          r.Format,
			IndexedAtUnixMS: r.IndexedAtUnixMS,
			TotalRecords:    r.TotalRecords,
			Indexed:         true,
		}
	}
	return out
}

// ForgetRecent deletes every catalog/stats/search row and on-disk artifact
// for id, and drops it from the recent list.
func (e *Engine) ForgetRecent(id string) error {
	if err := validateFileID(id); err != nil {
		return err
	}
	if err := e.idx.DeleteFile(id); err != nil {
		return fmt.Errorf("engineapi: forget %s: %w", id, err)
	}
	catalog.DeleteArtifacts(e.indexDir, id)
	e.rdr.Invalidate(id)
	if err := e.recent.Remove(id); err != nil {
		return fmt.Errorf("engineapi: remove %s from recent list: %w", id, err)
	}
	return nil
}

// ClearAll deletes every index artifact and empties the recent list.
func (e *Engine) ClearAll() error {
	rows, err := e.idx.ListAll()
	if err != nil {
		return fmt.Errorf("engineapi: list catalog rows: %w", err)
	}
	for _, row := range rows {
		e.rdr.Invalidate(row.FileID)
		catalog.DeleteArtifacts(e.indexDir, row.FileID)
	}
	if err := e.idx.ClearAll(); err != nil {
		return fmt.Errorf("engineapi: clear all: %w", err)
	}
	return e.recent.Clear()
}
