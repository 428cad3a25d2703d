package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dataexplorer/engine/internal/fingerprint"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
)

const legacyMetaSuffix = ".meta.json"

// legacyMeta is the JSON shape of a pre-search.db catalog sidecar
// ({id}.meta.json), modeled on the teacher's internal/schema.Load/Save
// one-file-per-concern convention.
type legacyMeta struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// MigrateLegacy folds every {id}.meta.json sidecar in indexDir that lacks a
// search.db catalog row back into the index, by re-running the index
// writer against the source path recorded in the sidecar. This is
// equivalent to a fast re-index rather than a byte-for-byte import, which
// keeps the migrated position table, search rows, and stats mutually
// consistent without a second code path that can drift from the writer's
// own invariants. On success the legacy sidecar files are removed (the
// legacy {id}.index.bin is left in place to be overwritten in place by the
// writer's atomic rename). Sidecars whose source file has moved, shrunk,
// or vanished are left for the next startup rather than treated as fatal.
func MigrateLegacy(ctx context.Context, idx *searchindex.Index, indexDir string, log zerolog.Logger) error {
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("catalog: read index dir %s: %w", indexDir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), legacyMetaSuffix) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), legacyMetaSuffix)

		existing, err := idx.GetCatalog(id)
		if err != nil {
			log.Warn().Str("file_id", id).Err(err).Msg("legacy migration: catalog lookup failed")
			continue
		}
		if existing != nil {
			continue
		}

		if err := migrateOne(ctx, idx, indexDir, id, log); err != nil {
			log.Warn().Str("file_id", id).Err(err).Msg("legacy migration: skipped")
		}
	}
	return nil
}

func migrateOne(ctx context.Context, idx *searchindex.Index, indexDir, id string, log zerolog.Logger) error {
	metaPath := filepath.Join(indexDir, id+legacyMetaSuffix)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", metaPath, err)
	}
	var meta legacyMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("unmarshal %s: %w", metaPath, err)
	}

	actualID, size, _, err := fingerprint.OfFile(meta.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", meta.Path, err)
	}
	if actualID != id {
		return fmt.Errorf("%s has changed identity since it was indexed (now %s)", meta.Path, actualID)
	}

	sniffed, err := sniff.Sniff(meta.Path)
	if err != nil {
		return fmt.Errorf("sniff %s: %w", meta.Path, err)
	}

	name := meta.Name
	if name == "" {
		name = filepath.Base(meta.Path)
	}

	_, err = indexwriter.Write(ctx, idx, indexwriter.Request{
		FileID:    id,
		Path:      meta.Path,
		Name:      name,
		Size:      size,
		Format:    sniffed.Format,
		Delimiter: sniffed.Delimiter,
		IndexDir:  indexDir,
	}, log, nil)
	if err != nil {
		return fmt.Errorf("reindex %s: %w", meta.Path, err)
	}

	os.Remove(metaPath)
	os.Remove(filepath.Join(indexDir, id+".stats.json"))
	log.Info().Str("file_id", id).Msg("legacy sidecar migrated into search.db")
	return nil
}
