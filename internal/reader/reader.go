// Package reader implements the Record Reader (C7): given a file-id and a
// row-index, it resolves the catalog entry and position table (both
// LRU-cached), opens the source file through a small per-file-id handle
// pool, reads a bounded scratch slice around the record's byte offset, and
// decodes exactly one record per the source format — never materializing
// more of the source file than the one record being requested.
package reader

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dataexplorer/engine/internal/config"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/lrucache"
	"github.com/dataexplorer/engine/internal/recordblock"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
	"github.com/dataexplorer/engine/internal/streamparse"
	"github.com/dataexplorer/engine/internal/value"
)

// Cache capacities, matching the engine's configuration defaults (32 MiB
// parser chunks, 1000-entry record cache, 10-file position cache, 20-file
// metadata cache — spec.md's configuration table).
const (
	MetadataCacheSize = 20
	PositionCacheSize = 10
	RecordCacheSize   = 1000
)

// overreadMargin and maxScratch bound the Record Reader's scratch read, per
// spec §4.5 step 3: read(start, min(end_hint - start + 500, 32768)).
const (
	overreadMargin = 500
	maxScratch     = 32768
)

type recordKey struct {
	fileID   string
	rowIndex int64
}

type positionHandle struct {
	file   *os.File
	reader *recordblock.Reader
}

// Reader hydrates single records from file-id + row-index. Its caches are
// single-thread-owned by the request-serving thread (spec §5); callers must
// not share a Reader across request-handling goroutines without external
// synchronization beyond what the handle pool below already provides.
type Reader struct {
	idx      *searchindex.Index
	indexDir string

	metaCache   *lrucache.Cache[string, searchindex.CatalogRow]
	posCache    *lrucache.Cache[string, *positionHandle]
	recordCache *lrucache.Cache[recordKey, map[string]value.Value]

	mu       sync.Mutex
	sources  map[string]*os.File
	readyMu  sync.Mutex
	ready    chan struct{}
	readyHit bool
}

// New constructs a Reader backed by idx with the engine's default cache
// sizes, resolving position tables and source files relative to indexDir.
func New(idx *searchindex.Index, indexDir string) *Reader {
	return NewWithCacheSizes(idx, indexDir, MetadataCacheSize, PositionCacheSize, RecordCacheSize)
}

// NewFromConfig constructs a Reader using the cache sizes from cfg instead
// of the package defaults, so a host that overrides config.EngineConfig's
// cache tunables actually gets the caches it asked for.
func NewFromConfig(idx *searchindex.Index, indexDir string, cfg config.EngineConfig) *Reader {
	return NewWithCacheSizes(idx, indexDir, cfg.MetadataCacheSize, cfg.PositionCacheSize, cfg.RecordCacheSize)
}

// NewWithCacheSizes constructs a Reader with explicit cache capacities.
func NewWithCacheSizes(idx *searchindex.Index, indexDir string, metaCacheSize, posCacheSize, recordCacheSize int) *Reader {
	r := &Reader{
		idx:         idx,
		indexDir:    indexDir,
		metaCache:   lrucache.New[string, searchindex.CatalogRow](metaCacheSize),
		posCache:    lrucache.New[string, *positionHandle](posCacheSize),
		recordCache: lrucache.New[recordKey, map[string]value.Value](recordCacheSize),
		sources:     make(map[string]*os.File),
		ready:       make(chan struct{}),
	}
	r.posCache.OnEvict(func(_ string, h *positionHandle) {
		if h != nil && h.file != nil {
			h.file.Close()
		}
	})
	return r
}

// Ready returns a channel that closes once MarkReady has been called. page
// and search callers should select on it (or an already-closed channel, the
// common case) before reading, per spec §4.5's initialization race note.
func (r *Reader) Ready() <-chan struct{} {
	r.readyMu.Lock()
	defer r.readyMu.Unlock()
	return r.ready
}

// MarkReady signals that the secondary index has finished loading (legacy
// migration and stale-row purge complete). Idempotent.
func (r *Reader) MarkReady() {
	r.readyMu.Lock()
	defer r.readyMu.Unlock()
	if !r.readyHit {
		r.readyHit = true
		close(r.ready)
	}
}

// Invalidate drops every cached entry for fileID (metadata, position table,
// decoded records) and closes its open source handle, used on forget,
// re-index, or path change.
func (r *Reader) Invalidate(fileID string) {
	r.metaCache.InvalidateFunc(func(k string) bool { return k == fileID })
	r.posCache.InvalidateFunc(func(k string) bool { return k == fileID })
	r.recordCache.InvalidateFunc(func(k recordKey) bool { return k.fileID == fileID })

	r.mu.Lock()
	if f, ok := r.sources[fileID]; ok {
		f.Close()
		delete(r.sources, fileID)
	}
	r.mu.Unlock()
}

// GetRecord decodes and returns record rowIndex of fileID, tagged with
// _index. The result is a defensive copy safe for the caller to mutate.
func (r *Reader) GetRecord(fileID string, rowIndex int64) (map[string]value.Value, error) {
	key := recordKey{fileID: fileID, rowIndex: rowIndex}
	if cached, ok := r.recordCache.Get(key); ok {
		return cloneValues(cached), nil
	}

	catalogRow, err := r.resolveCatalog(fileID)
	if err != nil {
		return nil, err
	}

	ph, err := r.resolvePositionTable(fileID)
	if err != nil {
		return nil, err
	}
	start, err := ph.reader.EntryAt(rowIndex)
	if err != nil {
		return nil, fmt.Errorf("reader: entry at row %d: %w", rowIndex, err)
	}
	endHint := start + 16384
	if rowIndex+1 < ph.reader.Len() {
		if next, err := ph.reader.EntryAt(rowIndex + 1); err == nil {
			endHint = next
		}
	}

	src, err := r.resolveSource(fileID, catalogRow.Path)
	if err != nil {
		return nil, err
	}
	readLen := endHint - start + overreadMargin
	if readLen > maxScratch {
		readLen = maxScratch
	}
	if readLen < 1 {
		readLen = 1
	}
	scratch := make([]byte, readLen)
	n, err := src.ReadAt(scratch, start)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("reader: read %s at %d: %w", catalogRow.Path, start, err)
	}
	scratch = scratch[:n]

	decoded, err := decodeRecord(sniff.Format(catalogRow.Format), []byte(catalogRow.Delimiter), catalogRow.Columns, scratch)
	if err != nil {
		return nil, fmt.Errorf("reader: decode %s row %d: %w", fileID, rowIndex, err)
	}
	filterToColumns(decoded, catalogRow.Columns)
	decoded["_index"] = value.Int(rowIndex)

	r.recordCache.Set(key, cloneValues(decoded))
	return decoded, nil
}

func (r *Reader) resolveCatalog(fileID string) (searchindex.CatalogRow, error) {
	if cached, ok := r.metaCache.Get(fileID); ok {
		return cached, nil
	}
	row, err := r.idx.GetCatalog(fileID)
	if err != nil {
		return searchindex.CatalogRow{}, fmt.Errorf("reader: resolve catalog %s: %w", fileID, err)
	}
	if row == nil {
		return searchindex.CatalogRow{}, fmt.Errorf("reader: no catalog entry for %s", fileID)
	}
	r.metaCache.Set(fileID, *row)
	return *row, nil
}

func (r *Reader) resolvePositionTable(fileID string) (*positionHandle, error) {
	if cached, ok := r.posCache.Get(fileID); ok {
		return cached, nil
	}
	path := indexwriter.PositionTablePath(r.indexDir, fileID)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: open position table %s: %w", path, err)
	}
	pr, err := recordblock.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reader: read position table %s: %w", path, err)
	}
	ph := &positionHandle{file: f, reader: pr}
	r.posCache.Set(fileID, ph)
	return ph, nil
}

func (r *Reader) resolveSource(fileID, path string) (*os.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.sources[fileID]; ok {
		return f, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: open source %s: %w", path, err)
	}
	r.sources[fileID] = f
	return f, nil
}

func cloneValues(m map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// filterToColumns drops any decoded key not present in declared, enforcing
// the invariant that get_record's keys are a subset of catalog(f).columns
// even if a record in the wild carries an undeclared field.
func filterToColumns(m map[string]value.Value, declared []string) {
	if len(declared) == 0 {
		return
	}
	allowed := make(map[string]struct{}, len(declared))
	for _, c := range declared {
		allowed[c] = struct{}{}
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
		}
	}
}

func decodeRecord(format sniff.Format, delimiter []byte, columns []string, scratch []byte) (map[string]value.Value, error) {
	switch format {
	case sniff.FormatCSV:
		return decodeCSVRecord(scratch, delimiterByte(delimiter), columns)
	case sniff.FormatNDJSON:
		return decodeLineJSONRecord(scratch)
	case sniff.FormatJSONArray:
		return decodeJSONArrayRecord(scratch)
	case sniff.FormatVCard:
		return decodeVCardRecord(scratch)
	default:
		return nil, fmt.Errorf("reader: unknown format %q", format)
	}
}

func delimiterByte(d []byte) byte {
	if len(d) == 0 {
		return ','
	}
	return d[0]
}

func lineUpTo(scratch []byte, sep byte) []byte {
	if i := bytes.IndexByte(scratch, sep); i != -1 {
		return scratch[:i]
	}
	return scratch
}

func decodeCSVRecord(scratch []byte, delim byte, columns []string) (map[string]value.Value, error) {
	line := lineUpTo(scratch, '\n')
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	fields, ok := streamparse.SplitCSVLine(line, delim)
	if !ok {
		return nil, fmt.Errorf("reader: unbalanced quotes in csv record")
	}
	n := len(fields)
	if len(columns) < n {
		n = len(columns)
	}
	out := make(map[string]value.Value, n)
	for i := 0; i < n; i++ {
		out[columns[i]] = value.Str(fields[i])
	}
	return out, nil
}

func decodeLineJSONRecord(scratch []byte) (map[string]value.Value, error) {
	line := lineUpTo(scratch, '\n')
	return streamparse.DecodeJSONObjectValues(line)
}

func decodeJSONArrayRecord(scratch []byte) (map[string]value.Value, error) {
	if len(scratch) == 0 || scratch[0] != '{' {
		return nil, fmt.Errorf("reader: scratch does not start at object")
	}
	end, ok := streamparse.FindJSONObjectEnd(scratch, 0)
	if !ok {
		return nil, fmt.Errorf("reader: object end not found within scratch")
	}
	return streamparse.DecodeJSONObjectValues(scratch[:end+1])
}

func decodeVCardRecord(scratch []byte) (map[string]value.Value, error) {
	endMarker := []byte("END:VCARD")
	markerIdx := bytes.Index(scratch, endMarker)
	if markerIdx == -1 {
		return nil, fmt.Errorf("reader: END:VCARD not found within scratch")
	}
	endIdx := markerIdx + len(endMarker)
	block := unfoldVCardContinuations(scratch[:endIdx])

	props := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		colonIdx := strings.IndexByte(line, ':')
		if colonIdx == -1 {
			continue
		}
		keyPart := line[:colonIdx]
		if semi := strings.IndexByte(keyPart, ';'); semi != -1 {
			keyPart = keyPart[:semi]
		}
		key := strings.ToUpper(keyPart)
		val := line[colonIdx+1:]

		switch key {
		case "BEGIN", "END", "VERSION":
			continue
		case "EMAIL", "TEL":
			if existing, ok := props[key]; ok && existing != "" {
				props[key] = existing + ", " + val
			} else {
				props[key] = val
			}
		default:
			if _, ok := props[key]; !ok {
				props[key] = val
			}
		}
	}

	out := make(map[string]value.Value, len(props))
	for _, col := range streamparse.VCardColumns {
		if v, ok := props[col]; ok {
			out[col] = value.Str(v)
		}
	}
	return out, nil
}

// unfoldVCardContinuations removes every "\r?\n[ \t]" sequence, joining a
// continuation line into the property line it continues.
func unfoldVCardContinuations(b []byte) string {
	s := string(b)
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '\t') {
			if len(out) > 0 && out[len(out)-1] == '\r' {
				out = out[:len(out)-1]
			}
			i++ // also skip the fold whitespace byte
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

