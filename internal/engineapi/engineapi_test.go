package engineapi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/engine/internal/config"
	"github.com/dataexplorer/engine/internal/coordinator"
	"github.com/dataexplorer/engine/internal/searchindex"
)

func openEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.IndexDir = dir
	e, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, dir
}

func waitIndexed(t *testing.T, e *Engine, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := e.IndexStatus(id)
		if ok && st.State == coordinator.StateComplete {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for index completion")
}

func TestOpenFileInfoReportsUnindexed(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAda,a@x\n"), 0644))

	info, err := e.OpenFileInfo(path)
	require.NoError(t, err)
	require.False(t, info.Indexed)
	require.Equal(t, "csv", info.Format)
}

func TestOpenFileInfoRejectsBadExtension(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))

	_, err := e.OpenFileInfo(path)
	require.Error(t, err)
}

func TestStartIndexThenPageAndGetRecord(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\n\"Doe, John\",a@x\nJane,b@y\n"), 0644))

	id, err := e.StartIndex(path)
	require.NoError(t, err)
	waitIndexed(t, e, id)
	require.NoError(t, e.TouchRecent(id))

	page, err := e.Page(id, 1, 10, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Records, 2)
	require.Equal(t, "Doe, John", page.Records[0]["name"].Str)

	rec, err := e.GetRecord(id, 1)
	require.NoError(t, err)
	require.Equal(t, "Jane", rec["name"].Str)

	recent := e.ListRecent()
	require.Len(t, recent, 1)
	require.Equal(t, id, recent[0].FileID)
}

func TestSearchAllEmptyValuesReturnsEmptyResult(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAda,a@x\n"), 0644))
	id, err := e.StartIndex(path)
	require.NoError(t, err)
	waitIndexed(t, e, id)

	res, err := e.Search(id, []SearchField{{Column: "name", Value: "", Operator: searchindex.OpContains}}, false, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Total)
	require.Empty(t, res.Records)
}

func TestSearchTagsExactFlag(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAda,a@x\n"), 0644))
	id, err := e.StartIndex(path)
	require.NoError(t, err)
	waitIndexed(t, e, id)

	res, err := e.Search(id, []SearchField{{Column: "name", Value: "ada", Operator: searchindex.OpContains}}, true, 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.True(t, res.Records[0]["_exact"].Bool)
}

func TestForgetRecentRemovesArtifactsAndCatalog(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAda,a@x\n"), 0644))
	id, err := e.StartIndex(path)
	require.NoError(t, err)
	waitIndexed(t, e, id)
	require.NoError(t, e.TouchRecent(id))

	require.NoError(t, e.ForgetRecent(id))

	info, err := e.OpenFileInfo(path)
	require.NoError(t, err)
	require.False(t, info.Indexed)
	require.Empty(t, e.ListRecent())
}

func TestExportCSVWritesDestination(t *testing.T) {
	e, dir := openEngine(t)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAda,a@x\nBob,b@y\n"), 0644))
	id, err := e.StartIndex(path)
	require.NoError(t, err)
	waitIndexed(t, e, id)

	dest := filepath.Join(dir, "out.csv")
	require.NoError(t, e.Export(ExportRequest{FileID: id, Format: ExportCSV, DestPath: dest}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Contains(t, string(data), "name,email")
	require.Contains(t, string(data), "Ada,a@x")
	require.Contains(t, string(data), "Bob,b@y")
}

func TestValidateFileIDRejectsMalformed(t *testing.T) {
	e, _ := openEngine(t)
	_, err := e.GetRecord("not-an-id", 0)
	require.Error(t, err)
}
