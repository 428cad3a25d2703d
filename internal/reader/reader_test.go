package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/engine/internal/enginelog"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
	"github.com/dataexplorer/engine/internal/value"
)

func writeAndIndex(t *testing.T, dir, name, content string, req indexwriter.Request) (*searchindex.Index, indexwriter.Result) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	idx, err := searchindex.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	req.Path = path
	req.Name = name
	req.IndexDir = dir

	res, err := indexwriter.Write(context.Background(), idx, req, enginelog.New(), nil)
	require.NoError(t, err)
	return idx, res
}

func TestGetRecordCSVZipsDeclaredColumns(t *testing.T) {
	dir := t.TempDir()
	idx, _ := writeAndIndex(t, dir, "people.csv", "name,email\n\"Doe, John\",a@x\nJane,b@y\n", indexwriter.Request{
		FileID: "0000000000000001", Format: sniff.FormatCSV, Delimiter: ',',
	})

	r := New(idx, dir)
	rec, err := r.GetRecord("0000000000000001", 0)
	require.NoError(t, err)
	require.Equal(t, "Doe, John", rec["name"].Str)
	require.Equal(t, "a@x", rec["email"].Str)
	require.Equal(t, int64(0), rec["_index"].Int)

	rec1, err := r.GetRecord("0000000000000001", 1)
	require.NoError(t, err)
	require.Equal(t, "Jane", rec1["name"].Str)
	require.Equal(t, int64(1), rec1["_index"].Int)
}

func TestGetRecordNDJSONDropsObjectsKeepsArrays(t *testing.T) {
	dir := t.TempDir()
	content := `{"name":"Alice","tags":["a","b"],"nested":{"x":1},"age":30}` + "\n"
	idx, _ := writeAndIndex(t, dir, "people.ndjson", content, indexwriter.Request{
		FileID: "0000000000000002", Format: sniff.FormatNDJSON,
	})

	r := New(idx, dir)
	rec, err := r.GetRecord("0000000000000002", 0)
	require.NoError(t, err)
	require.Equal(t, "Alice", rec["name"].Str)
	require.Equal(t, int64(30), rec["age"].Int)
	require.Equal(t, `["a","b"]`, rec["tags"].Str)
	require.Equal(t, value.KindJSON, rec["tags"].Kind)
	_, hasNested := rec["nested"]
	require.False(t, hasNested)
}

func TestGetRecordJSONArrayHandlesEscapedBraces(t *testing.T) {
	dir := t.TempDir()
	content := `[{"name":"A","note":"has { and } and \" inside"},{"name":"B","note":"plain"}]`
	idx, _ := writeAndIndex(t, dir, "people.json", content, indexwriter.Request{
		FileID: "0000000000000003", Format: sniff.FormatJSONArray,
	})

	r := New(idx, dir)
	rec, err := r.GetRecord("0000000000000003", 0)
	require.NoError(t, err)
	require.Equal(t, "A", rec["name"].Str)
	require.Equal(t, `has { and } and " inside`, rec["note"].Str)

	rec1, err := r.GetRecord("0000000000000003", 1)
	require.NoError(t, err)
	require.Equal(t, "B", rec1["name"].Str)
}

func TestGetRecordVCardUnfoldsContinuationAndMergesEmail(t *testing.T) {
	dir := t.TempDir()
	content := "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nNOTE:long note that\r\n continues here\r\nEMAIL:jane@work.com\r\nEMAIL:jane@home.com\r\nEND:VCARD\r\n"
	idx, _ := writeAndIndex(t, dir, "contact.vcf", content, indexwriter.Request{
		FileID: "0000000000000004", Format: sniff.FormatVCard,
	})

	r := New(idx, dir)
	rec, err := r.GetRecord("0000000000000004", 0)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", rec["FN"].Str)
	require.Equal(t, "long note that continues here", rec["NOTE"].Str)
	require.Equal(t, "jane@work.com, jane@home.com", rec["EMAIL"].Str)
}

func TestGetRecordCachesDecodedResult(t *testing.T) {
	dir := t.TempDir()
	idx, _ := writeAndIndex(t, dir, "a.csv", "a,b\n1,2\n", indexwriter.Request{
		FileID: "0000000000000005", Format: sniff.FormatCSV, Delimiter: ',',
	})

	r := New(idx, dir)
	first, err := r.GetRecord("0000000000000005", 0)
	require.NoError(t, err)
	require.Equal(t, 1, r.recordCache.Len())

	first["a"] = value.Str("mutated")

	second, err := r.GetRecord("0000000000000005", 0)
	require.NoError(t, err)
	require.Equal(t, "1", second["a"].Str)
}

func TestInvalidateClearsCachesAndClosesHandles(t *testing.T) {
	dir := t.TempDir()
	idx, _ := writeAndIndex(t, dir, "a.csv", "a,b\n1,2\n", indexwriter.Request{
		FileID: "0000000000000006", Format: sniff.FormatCSV, Delimiter: ',',
	})

	r := New(idx, dir)
	_, err := r.GetRecord("0000000000000006", 0)
	require.NoError(t, err)

	r.Invalidate("0000000000000006")
	require.Equal(t, 0, r.recordCache.Len())

	_, err = r.GetRecord("0000000000000006", 0)
	require.NoError(t, err)
}

func TestReadyClosesOnMarkReady(t *testing.T) {
	dir := t.TempDir()
	idx, err := searchindex.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	r := New(idx, dir)
	select {
	case <-r.Ready():
		t.Fatal("expected Ready to block before MarkReady")
	default:
	}

	r.MarkReady()
	r.MarkReady() // idempotent
	select {
	case <-r.Ready():
	default:
		t.Fatal("expected Ready to be closed after MarkReady")
	}
}
