package indexwriter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/engine/internal/enginelog"
	"github.com/dataexplorer/engine/internal/recordblock"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestWriteCSVEndToEnd(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeSource(t, dir, "people.csv", "name,email\n\"Doe, John\",a@x\nJane,b@y\n")

	idx, err := searchindex.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	req := Request{
		FileID:    "abc123abc123abcd",
		Path:      srcPath,
		Name:      "people.csv",
		Size:      int64(len("name,email\n\"Doe, John\",a@x\nJane,b@y\n")),
		Format:    sniff.FormatCSV,
		Delimiter: ',',
		IndexDir:  dir,
	}

	res, err := Write(context.Background(), idx, req, enginelog.New(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.TotalRecords)
	require.Equal(t, []string{"name", "email"}, res.Columns)
	require.Equal(t, []string{"name", "email"}, res.SearchableColumns)

	catalog, err := idx.GetCatalog(req.FileID)
	require.NoError(t, err)
	require.NotNil(t, catalog)
	require.Equal(t, int64(2), catalog.TotalRecords)

	stats, err := idx.GetStats(req.FileID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Len(t, stats.Columns, 2)

	finalPath := PositionTablePath(dir, req.FileID)
	f, err := os.Open(finalPath)
	require.NoError(t, err)
	defer f.Close()
	reader, err := recordblock.NewReader(f)
	require.NoError(t, err)
	require.EqualValues(t, 2, reader.Len())
}

func TestWriteCancellationRollsBackArtifacts(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeSource(t, dir, "big.csv", "a,b\n1,2\n3,4\n5,6\n")

	idx, err := searchindex.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := Request{
		FileID:    "deadbeefdeadbeef",
		Path:      srcPath,
		Name:      "big.csv",
		Format:    sniff.FormatCSV,
		Delimiter: ',',
		IndexDir:  dir,
	}

	_, err = Write(ctx, idx, req, enginelog.New(), nil)
	require.Error(t, err)

	catalog, err := idx.GetCatalog(req.FileID)
	require.NoError(t, err)
	require.Nil(t, catalog)

	_, statErr := os.Stat(PositionTablePath(dir, req.FileID))
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(tempPositionTablePath(dir, req.FileID))
	require.True(t, os.IsNotExist(statErr))
}
