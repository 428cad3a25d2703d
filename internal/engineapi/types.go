package engineapi

import (
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/value"
)

// Record is one decoded row as handed back across the request boundary.
type Record = map[string]value.Value

// FileInfo is the catalog-shaped record returned by open_file_info and
// list_recent, carrying an extra Indexed flag for files that have been
// sniffed but never indexed.
type FileInfo struct {
	FileID            string   `json:"fileId"`
	Path              string   `json:"path"`
	Name              string   `json:"name"`
	Size              int64    `json:"size"`
	Format            string   `json:"format"`
	Delimiter         string   `json:"delimiter,omitempty"`
	IndexedAtUnixMS   int64    `json:"indexedAt,omitempty"`
	TotalRecords      int64    `json:"totalRecords"`
	Columns           []string `json:"columns,omitempty"`
	SearchableColumns []string `json:"searchableColumns,omitempty"`
	Indexed           bool     `json:"indexed"`
}

func fileInfoFromCatalog(row searchindex.CatalogRow) FileInfo {
	return FileInfo{
		FileID:            row.FileID,
		Path:              row.Path,
		Name:              row.Name,
		Size:              row.Size,
		Format:            row.Format,
		Delimiter:         row.Delimiter,
		IndexedAtUnixMS:   row.IndexedAtUnixMS,
		TotalRecords:      row.TotalRecords,
		Columns:           row.Columns,
		SearchableColumns: row.SearchableColumns,
		Indexed:           true,
	}
}

// PageResult is the output of page(): one page of fully decoded records
// plus the total count matching filters, for pagination UI.
type PageResult struct {
	Records []Record `json:"records"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// SearchField is one (column, value, operator) leaf of a search call.
type SearchField struct {
	Column   string               `json:"column"`
	Value    string               `json:"value"`
	Operator searchindex.Operator `json:"operator"`
}

// SearchResult is the output of search(): same shape as PageResult plus the
// query's elapsed wall time, per spec §6.
type SearchResult struct {
	Records   []Record `json:"records"`
	Total     int64    `json:"total"`
	Page      int      `json:"page"`
	Limit     int      `json:"limit"`
	ElapsedMS int64    `json:"elapsedMs"`
}
