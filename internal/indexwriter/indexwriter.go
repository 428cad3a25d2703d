// Package indexwriter implements the Index Writer (C4): given a sniffed
// source file and a running streaming parser (C3), it persists the
// fixed-width position table (via internal/recordblock) and populates the
// catalog + search rows of the secondary index (internal/searchindex)
// inside a single transaction, handing each record's values to the
// statistics accumulator (internal/stats) along the way.
package indexwriter

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataexplorer/engine/internal/enginerr"
	"github.com/dataexplorer/engine/internal/recordblock"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
	"github.com/dataexplorer/engine/internal/stats"
	"github.com/dataexplorer/engine/internal/streamparse"
)

// searchableColumnCount bounds how many leading declared columns are
// projected into the search table's col0..col5 cells.
const searchableColumnCount = 6

// Request describes one indexing job's inputs.
type Request struct {
	FileID    string
	Path      string
	Name      string
	Size      int64
	Format    sniff.Format
	Delimiter byte
	IndexDir  string

	// ChunkSizeBytes overrides streamparse's default read chunk size when
	// positive; zero falls back to streamparse.DefaultChunkSize.
	ChunkSizeBytes int
}

// Result summarizes a completed indexing job.
type Result struct {
	TotalRecords      int64
	Columns           []string
	SearchableColumns []string
	Warnings          int
}

// PositionTablePath returns the on-disk path of the position table for id
// within dir, matching the {id}.index.bin convention of spec §6.
func PositionTablePath(dir, id string) string {
	return filepath.Join(dir, id+".index.bin")
}

func tempPositionTablePath(dir, id string) string {
	return filepath.Join(dir, id+".index.bin.tmp")
}

// Write drives the parser appropriate for req.Format over req.Path, writing
// the position table and secondary-index rows as records are discovered.
// On success the transaction is committed and the temp position-table file
// is renamed into place; on cancellation or any error, every partial
// artifact (temp file, transaction) is rolled back and no catalog entry
// becomes visible.
func Write(ctx context.Context, idx *searchindex.Index, req Request, log zerolog.Logger, onProgress func(streamparse.Progress)) (Result, error) {
	log = log.With().Str("file_id", req.FileID).Logger()

	tmpPath := tempPositionTablePath(req.IndexDir, req.FileID)
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return Result{}, enginerr.IO("indexwriter: create %s: %v", tmpPath, err)
	}
	cleanupTemp := func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}

	pw, err := recordblock.NewWriter(tmpFile)
	if err != nil {
		cleanupTemp()
		return Result{}, enginerr.IO("indexwriter: new position writer: %v", err)
	}

	parser, err := streamparse.New(req.Format, req.Delimiter)
	if err != nil {
		cleanupTemp()
		return Result{}, enginerr.Validation("indexwriter: %v", err)
	}

	tx, err := idx.Begin()
	if err != nil {
		cleanupTemp()
		return Result{}, enginerr.IO("indexwriter: begin transaction: %v", err)
	}
	rollback := func() {
		tx.Rollback()
		cleanupTemp()
	}

	var (
		accumulator       *stats.Accumulator
		searchableColumns []string
		rowIndex          int64
		writeErr          error
	)

	onRecord := func(e streamparse.Emission) {
		if writeErr != nil {
			return
		}
		if err := pw.Append(e.Offset); err != nil {
			writeErr = enginerr.IO("indexwriter: append position: %v", err)
			return
		}
		if accumulator == nil {
			if cols := parser.Columns(); cols != nil {
				accumulator = stats.New(cols)
				n := len(cols)
				if n > searchableColumnCount {
					n = searchableColumnCount
				}
				searchableColumns = cols[:n]
			}
		}
		if accumulator != nil {
			accumulator.Observe(e.Values)
		}

		projection := make([]string, len(searchableColumns))
		for i, col := range searchableColumns {
			projection[i] = streamparse.Project(e.Values[col])
		}
		if err := searchindex.InsertSearchRow(tx, searchindex.SearchRow{
			FileID:     req.FileID,
			RowIndex:   rowIndex,
			Position:   e.Offset,
			Projection: projection,
		}); err != nil {
			writeErr = enginerr.IO("indexwriter: insert search row: %v", err)
			return
		}
		rowIndex++
	}

	res, err := streamparse.Run(ctx, req.Path, parser, streamparse.Options{ChunkSize: req.ChunkSizeBytes}, onRecord, onProgress)
	if err != nil {
		rollback()
		return Result{}, enginerr.IO("indexwriter: parse %s: %v", req.Path, err)
	}
	if writeErr != nil {
		rollback()
		return Result{}, writeErr
	}
	if res.Status == streamparse.StatusCancelled {
		rollback()
		log.Info().Msg("indexing cancelled, artifacts rolled back")
		return Result{}, enginerr.ErrCancelled
	}

	if err := pw.Close(); err != nil {
		rollback()
		return Result{}, enginerr.IO("indexwriter: close position writer: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		rollback()
		return Result{}, enginerr.IO("indexwriter: close temp file: %v", err)
	}
	finalPath := PositionTablePath(req.IndexDir, req.FileID)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		tx.Rollback()
		os.Remove(tmpPath)
		return Result{}, enginerr.IO("indexwriter: rename %s to %s: %v", tmpPath, finalPath, err)
	}

	delimiter := ""
	if req.Format == sniff.FormatCSV {
		delimiter = string(req.Delimiter)
	}
	catalogRow := searchindex.CatalogRow{
		FileID:            req.FileID,
		Path:              req.Path,
		Name:              req.Name,
		Size:              req.Size,
		Type:              "file",
		Format:            string(req.Format),
		Delimiter:         delimiter,
		IndexedAtUnixMS:   time.Now().UnixMilli(),
		TotalRecords:      res.TotalRecords,
		Columns:           res.Columns,
		SearchableColumns: searchableColumns,
	}
	if err := searchindex.PutCatalog(tx, catalogRow); err != nil {
		rollbackAfterRename(tx, finalPath)
		return Result{}, enginerr.IO("indexwriter: put catalog: %v", err)
	}
	if accumulator != nil {
		if err := searchindex.PutStats(tx, accumulator.Finalize(req.FileID)); err != nil {
			rollbackAfterRename(tx, finalPath)
			return Result{}, enginerr.IO("indexwriter: put stats: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		os.Remove(finalPath)
		return Result{}, enginerr.IO("indexwriter: commit: %v", err)
	}

	log.Info().
		Int64("total_records", res.TotalRecords).
		Int("warnings", res.Warnings).
		Msg("indexing complete")

	return Result{
		TotalRecords:      res.TotalRecords,
		Columns:           res.Columns,
		SearchableColumns: searchableColumns,
		Warnings:          res.Warnings,
	}, nil
}

// rollbackAfterRename undoes a transaction after the position-table file
// has already been moved into its final location; the file itself must
// still be removed so a failed commit never leaves an orphaned artifact
// behind for a file-id with no catalog row.
func rollbackAfterRename(tx *sql.Tx, finalPath string) {
	tx.Rollback()
	os.Remove(finalPath)
}
