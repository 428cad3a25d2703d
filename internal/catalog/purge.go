package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/searchindex"
)

// DeleteArtifacts removes every on-disk sidecar for fileID: the position
// table and any legacy meta/stats sidecars left over from before search.db
// existed. Used by forget_recent and clear_all alongside the corresponding
// searchindex row deletion.
func DeleteArtifacts(indexDir, fileID string) {
	os.Remove(indexwriter.PositionTablePath(indexDir, fileID))
	os.Remove(filepath.Join(indexDir, fileID+legacyMetaSuffix))
	os.Remove(filepath.Join(indexDir, fileID+".stats.json"))
}

// PurgeStale deletes every catalog/stats/search row whose position-table
// file is missing from indexDir — the invariant-violation case of spec §7
// (catalog refers to a missing position table). recent, if non-nil, is
// kept in sync so a purged file-id also disappears from recent.json.
func PurgeStale(idx *searchindex.Index, indexDir string, recent *RecentList, log zerolog.Logger) error {
	rows, err := idx.ListAll()
	if err != nil {
		return fmt.Errorf("catalog: list catalog rows: %w", err)
	}

	for _, row := range rows {
		path := indexwriter.PositionTablePath(indexDir, row.FileID)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := idx.DeleteFile(row.FileID); err != nil {
			return fmt.Errorf("catalog: purge %s: %w", row.FileID, err)
		}
		if recent != nil {
			if err := recent.Remove(row.FileID); err != nil {
				return fmt.Errorf("catalog: purge %s from recent list: %w", row.FileID, err)
			}
		}
		log.Info().Str("file_id", row.FileID).Msg("purged stale catalog row (missing position table)")
	}
	return nil
}
