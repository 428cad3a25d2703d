package main

import (
	"encoding/json"

	"github.com/dataexplorer/engine/internal/engineapi"
)

// shellRequest is the line-delimited JSON envelope engineshell accepts.
// Fields are action-specific; unused fields for a given action are ignored.
type shellRequest struct {
	Action   string                  `json:"action"`
	Path     string                  `json:"path,omitempty"`
	FileID   string                  `json:"fileId,omitempty"`
	Page     int                     `json:"page,omitempty"`
	Limit    int                     `json:"limit,omitempty"`
	Index    int64                   `json:"index,omitempty"`
	Filters  map[string]string       `json:"filters,omitempty"`
	Fields   []engineapi.SearchField `json:"fields,omitempty"`
	Exact    bool                    `json:"exact,omitempty"`
	Format   engineapi.ExportFormat  `json:"format,omitempty"`
	DestPath string                  `json:"destPath,omitempty"`
	Search   []engineapi.SearchField `json:"search,omitempty"`
}

func (d *daemon) dispatch(line []byte) []byte {
	var req shellRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorLine(err)
	}

	switch req.Action {
	case "open_file_info":
		info, err := d.engine.OpenFileInfo(req.Path)
		if err != nil {
			return errorLine(err)
		}
		return okLine(info)

	case "list_recent":
		return okLine(d.engine.ListRecent())

	case "forget_recent":
		if err := d.engine.ForgetRecent(req.FileID); err != nil {
			return errorLine(err)
		}
		return okLine(map[string]bool{"ok": true})

	case "clear_all":
		if err := d.engine.ClearAll(); err != nil {
			return errorLine(err)
		}
		return okLine(map[string]bool{"ok": true})

	case "start_index":
		id, err := d.engine.StartIndex(req.Path)
		if err != nil {
			return errorLine(err)
		}
		return okLine(map[string]string{"fileId": id})

	case "cancel_index":
		if err := d.engine.CancelIndex(req.FileID); err != nil {
			return errorLine(err)
		}
		return okLine(map[string]bool{"ok": true})

	case "index_status":
		status, ok := d.engine.IndexStatus(req.FileID)
		if !ok {
			return okLine(map[string]string{"state": "idle"})
		}
		if status.State == "complete" {
			_ = d.engine.TouchRecent(req.FileID)
		}
		return okLine(status)

	case "page":
		result, err := d.engine.Page(req.FileID, req.Page, req.Limit, req.Filters)
		if err != nil {
			return errorLine(err)
		}
		return okLine(result)

	case "search":
		result, err := d.engine.Search(req.FileID, req.Fields, req.Exact, req.Page, req.Limit)
		if err != nil {
			return errorLine(err)
		}
		return okLine(result)

	case "get_record":
		rec, err := d.engine.GetRecord(req.FileID, req.Index)
		if err != nil {
			return errorLine(err)
		}
		return okLine(rec)

	case "stats":
		entry, err := d.engine.Stats(req.FileID)
		if err != nil {
			return errorLine(err)
		}
		return okLine(entry)

	case "export":
		err := d.engine.Export(engineapi.ExportRequest{
			FileID:   req.FileID,
			Format:   req.Format,
			DestPath: req.DestPath,
			Filters:  req.Filters,
			Search:   req.Search,
			Limit:    req.Limit,
		})
		if err != nil {
			return errorLine(err)
		}
		return okLine(map[string]bool{"ok": true})

	default:
		return errorLine(unknownActionError(req.Action))
	}
}

type unknownAction string

func (u unknownAction) Error() string { return "unknown action: " + string(u) }

func unknownActionError(action string) error { return unknownAction(action) }
