package engineapi

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dataexplorer/engine/internal/enginerr"
	"github.com/dataexplorer/engine/internal/searchindex"
)

const exportPageSize = 1000

// ExportFormat is one of the two formats export() can write.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ExportRequest describes one export() call. Filters and Search are
// mutually exclusive ways of selecting rows; when both are empty, every
// record is exported. Limit, when > 0, caps the number of rows written.
// DestPath is the user-selected destination the host's save dialog
// produced; the spec names export's output as "a file at user-selected
// destination" without listing that path as a formal input, so it is
// threaded through here as the one addition this surface needs to actually
// write anywhere.
type ExportRequest struct {
	FileID   string
	Format   ExportFormat
	DestPath string
	Filters  map[string]string
	Search   []SearchField
	Limit    int
}

// Export streams every matching record for req.FileID to req.DestPath,
// written atomically via a same-directory temp file renamed into place —
// the same crash-safety pattern internal/indexwriter uses for the position
// table.
func (e *Engine) Export(req ExportRequest) error {
	if err := validateFileID(req.FileID); err != nil {
		return err
	}
	if req.Format != ExportCSV && req.Format != ExportJSON {
		return enginerr.Validation("unsupported export format %q", req.Format)
	}
	if len(req.DestPath) == 0 || len(req.DestPath) > maxPathBytes {
		return enginerr.Validation("destination path must be between 1 and %d bytes", maxPathBytes)
	}

	row, err := e.idx.GetCatalog(req.FileID)
	if err != nil {
		return fmt.Errorf("engineapi: export %s: resolve catalog: %w", req.FileID, err)
	}
	if row == nil {
		return fmt.Errorf("engineapi: export %s: not indexed", req.FileID)
	}
	<-e.rdr.Ready()

	tmpPath := filepath.Join(filepath.Dir(req.DestPath), "."+uuid.New().String()+".export.tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("engineapi: export %s: create temp file: %w", req.FileID, err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(tmpPath)
	}

	bw := bufio.NewWriter(f)
	writeErr := e.writeExport(bw, row, req)
	if writeErr == nil {
		writeErr = bw.Flush()
	}
	if writeErr != nil {
		cleanup()
		return fmt.Errorf("engineapi: export %s: %w", req.FileID, writeErr)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engineapi: export %s: close temp file: %w", req.FileID, err)
	}
	if err := os.Rename(tmpPath, req.DestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engineapi: export %s: rename into place: %w", req.FileID, err)
	}
	return nil
}

func (e *Engine) writeExport(w *bufio.Writer, row *searchindex.CatalogRow, req ExportRequest) error {
	switch req.Format {
	case ExportCSV:
		return e.writeExportCSV(w, row, req)
	default:
		return e.writeExportJSON(w, row, req)
	}
}

func (e *Engine) writeExportCSV(w *bufio.Writer, row *searchindex.CatalogRow, req ExportRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row.Columns); err != nil {
		return err
	}
	err := e.forEachExportRecord(row, req, func(rec Record) error {
		fields := make([]string, len(row.Columns))
		for i, col := range row.Columns {
			if v, ok := rec[col]; ok {
				fields[i] = v.String()
			}
		}
		return cw.Write(fields)
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (e *Engine) writeExportJSON(w *bufio.Writer, row *searchindex.CatalogRow, req ExportRequest) error {
	if _, err := w.WriteString("["); err != nil {
		return err
	}
	first := true
	err := e.forEachExportRecord(row, req, func(rec Record) error {
		if !first {
			if _, err := w.WriteString(","); err != nil {
				return err
			}
		}
		first = false
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		return err
	}
	_, err = w.WriteString("]")
	return err
}

// forEachExportRecord pages through the matching row set (search, then
// filters, then a full scan) exportPageSize rows at a time, materializing
// and handing each decoded record to fn until req.Limit is reached or the
// row set is exhausted.
func (e *Engine) forEachExportRecord(row *searchindex.CatalogRow, req ExportRequest, fn func(Record) error) error {
	written := 0
	page := 1
	for {
		var refs []searchindex.RowRef
		var total int64
		var err error

		switch {
		case len(req.Search) > 0:
			var fields []searchindex.SearchField
			for _, f := range req.Search {
				fields = append(fields, searchindex.SearchField{Column: f.Column, Value: f.Value, Operator: f.Operator})
			}
			refs, total, err = e.idx.Search(req.FileID, row.SearchableColumns, fields, page, exportPageSize)
		default:
			refs, total, err = e.idx.Page(req.FileID, row.SearchableColumns, page, exportPageSize, req.Filters)
		}
		if err != nil {
			return err
		}

		for _, ref := range refs {
			rec, err := e.rdr.GetRecord(req.FileID, ref.RowIndex)
			if err != nil {
				e.log.Warn().Str("file_id", req.FileID).Int64("row_index", ref.RowIndex).Err(err).Msg("export: skipping unreadable record")
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
			written++
			if req.Limit > 0 && written >= req.Limit {
				return nil
			}
		}

		if int64(page*exportPageSize) >= total || len(refs) == 0 {
			return nil
		}
		page++
	}
}
