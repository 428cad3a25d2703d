package engineapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/dataexplorer/engine/internal/enginerr"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/value"
)

// Page returns one page of fully decoded records for id, ordered by
// row_index, matching every filter (substring, case-insensitive). An empty
// filter set is a full scan. Blocks on the reader's readiness future so a
// call racing startup housekeeping never sees a cold index.
func (e *Engine) Page(id string, page, limit int, filters map[string]string) (PageResult, error) {
	if err := validateFileID(id); err != nil {
		return PageResult{}, err
	}
	if err := validatePageLimit(page, limit); err != nil {
		return PageResult{}, err
	}
	if err := validateFilters(filters); err != nil {
		return PageResult{}, err
	}
	<-e.rdr.Ready()

	row, err := e.idx.GetCatalog(id)
	if err != nil {
		return PageResult{}, fmt.Errorf("engineapi: page %s: resolve catalog: %w", id, err)
	}
	if row == nil {
		return PageResult{}, fmt.Errorf("engineapi: page %s: not indexed", id)
	}

	refs, total, err := e.idx.Page(id, row.SearchableColumns, page, limit, filters)
	if err != nil {
		return PageResult{}, fmt.Errorf("engineapi: page %s: %w", id, err)
	}

	return PageResult{
		Records: e.materialize(id, refs),
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}

// Search returns one page of fully decoded records for id matching fields
// (ANDed, per-field operator), tagging every result with the caller's exact
// flag. A search where every field's value is empty returns an empty
// result rather than degrading to a full scan, per spec §8.
func (e *Engine) Search(id string, fields []SearchField, exact bool, page, limit int) (SearchResult, error) {
	if err := validateFileID(id); err != nil {
		return SearchResult{}, err
	}
	if err := validatePageLimit(page, limit); err != nil {
		return SearchResult{}, err
	}
	started := time.Now()

	if len(fields) > 0 && allFieldValuesEmpty(fields) {
		return SearchResult{Page: page, Limit: limit, ElapsedMS: elapsedMS(started)}, nil
	}
	<-e.rdr.Ready()

	row, err := e.idx.GetCatalog(id)
	if err != nil {
		return SearchResult{}, fmt.Errorf("engineapi: search %s: resolve catalog: %w", id, err)
	}
	if row == nil {
		return SearchResult{}, fmt.Errorf("engineapi: search %s: not indexed", id)
	}

	var active []searchindex.SearchField
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		active = append(active, searchindex.SearchField{Column: f.Column, Value: f.Value, Operator: f.Operator})
	}

	refs, total, err := e.idx.Search(id, row.SearchableColumns, active, page, limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("engineapi: search %s: %w", id, err)
	}

	records := e.materialize(id, refs)
	for _, rec := range records {
		if rec != nil {
			rec["_exact"] = value.Bool(exact)
		}
	}

	return SearchResult{
		Records:   records,
		Total:     total,
		Page:      page,
		Limit:     limit,
		ElapsedMS: elapsedMS(started),
	}, nil
}

// GetRecord resolves a single decoded record by id and row index.
func (e *Engine) GetRecord(id string, index int64) (Record, error) {
	if err := validateFileID(id); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, enginerr.Validation("index must be >= 0")
	}
	<-e.rdr.Ready()
	rec, err := e.rdr.GetRecord(id, index)
	if err != nil {
		return nil, fmt.Errorf("engineapi: get_record %s[%d]: %w", id, index, err)
	}
	return rec, nil
}

// Stats returns the per-column distribution summary for id.
func (e *Engine) Stats(id string) (searchindex.StatsEntry, error) {
	if err := validateFileID(id); err != nil {
		return searchindex.StatsEntry{}, err
	}
	entry, err := e.idx.GetStats(id)
	if err != nil {
		return searchindex.StatsEntry{}, fmt.Errorf("engineapi: stats %s: %w", id, err)
	}
	if entry == nil {
		return searchindex.StatsEntry{}, fmt.Errorf("engineapi: stats %s: not indexed", id)
	}
	return *entry, nil
}

// materialize resolves each row ref's full record, rendering a nil entry
// (per spec §7's "reader returns a null record" I/O-failure behavior)
// instead of failing the whole page on one bad record.
func (e *Engine) materialize(id string, refs []searchindex.RowRef) []Record {
	out := make([]Record, len(refs))
	for i, ref := range refs {
		rec, err := e.rdr.GetRecord(id, ref.RowIndex)
		if err != nil {
			e.log.Warn().Str("file_id", id).Int64("row_index", ref.RowIndex).Err(err).Msg("get_record failed, returning null placeholder")
			out[i] = nil
			continue
		}
		out[i] = rec
	}
	return out
}

func allFieldValuesEmpty(fields []SearchField) bool {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			return false
		}
	}
	return true
}

func elapsedMS(started time.Time) int64 {
	return time.Since(started).Milliseconds()
}
