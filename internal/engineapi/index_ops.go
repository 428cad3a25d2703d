package engineapi

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dataexplorer/engine/internal/catalog"
	"github.com/dataexplorer/engine/internal/coordinator"
	"github.com/dataexplorer/engine/internal/fingerprint"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
)

// StartIndex validates and fingerprints path, then launches an indexing
// job for it, returning its file-id immediately. Progress and terminal
// state are observed via IndexStatus (the request API's progress stream is
// server-push in spirit but polled here, since the engine has no transport
// of its own).
func (e *Engine) StartIndex(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	id, size, _, err := fingerprint.OfFile(path)
	if err != nil {
		return "", fmt.Errorf("engineapi: fingerprint %s: %w", path, err)
	}

	sniffed, err := sniff.Sniff(path)
	if err != nil {
		return "", fmt.Errorf("engineapi: sniff %s: %w", path, err)
	}

	req := indexwriter.Request{
		FileID:    id,
		Path:      path,
		Name:      filepath.Base(path),
		Size:      size,
		Format:    sniffed.Format,
		Delimiter: sniffed.Delimiter,
		IndexDir:  e.indexDir,

		ChunkSizeBytes: e.cfg.ChunkSizeBytes,
	}
	if err := e.coord.Start(context.Background(), req); err != nil {
		if errors.Is(err, coordinator.ErrAlreadyIndexing) {
			return id, nil
		}
		return "", fmt.Errorf("engineapi: start index %s: %w", path, err)
	}
	return id, nil
}

// CancelIndex requests cancellation of the active job for id, if any.
func (e *Engine) CancelIndex(id string) error {
	if err := validateFileID(id); err != nil {
		return err
	}
	if err := e.coord.Cancel(id); err != nil {
		return fmt.Errorf("engineapi: cancel %s: %w", id, err)
	}
	return nil
}

// IndexStatus returns the current state/progress/result for a job started
// via StartIndex. The second return value is false if id has no job (it
// was never indexed in this process lifetime, or id is malformed).
func (e *Engine) IndexStatus(id string) (coordinator.Status, bool) {
	if err := validateFileID(id); err != nil {
		return coordinator.Status{State: coordinator.StateIdle}, false
	}
	return e.coord.Status(id)
}

// TouchRecent records fileID's just-completed index in the recent list.
// Called by the host once IndexStatus reports StateComplete, since the
// coordinator itself has no dependency on the recent list.
func (e *Engine) TouchRecent(fileID string) error {
	row, err := e.idx.GetCatalog(fileID)
	if err != nil {
		return fmt.Errorf("engineapi: touch recent %s: %w", fileID, err)
	}
	if row == nil {
		return fmt.Errorf("engineapi: touch recent %s: no catalog entry", fileID)
	}
	return e.recent.Touch(toRecentEntry(*row))
}

func toRecentEntry(row searchindex.CatalogRow) catalog.RecentEntry {
	return catalog.RecentEntry{
		FileID:          row.FileID,
		Path:            row.Path,
		Name:            row.Name,
		Size:            row.Size,
		Format:          row.Format,
		IndexedAtUnixMS: row.IndexedAtUnixMS,
		TotalRecords:    row.TotalRecords,
	}
}
