package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/engine/internal/enginelog"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/reader"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
)

func setup(t *testing.T) (*Coordinator, *searchindex.Index, string) {
	t.Helper()
	dir := t.TempDir()
	idx, err := searchindex.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	rdr := reader.New(idx, dir)
	return New(idx, rdr, enginelog.New()), idx, dir
}

func waitForState(t *testing.T, c *Coordinator, fileID string, want State) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := c.Status(fileID)
		if ok && st.State == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s", want)
	return Status{}
}

func TestStartRunsToCompletion(t *testing.T) {
	c, idx, dir := setup(t)

	path := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0644))

	req := indexwriter.Request{
		FileID: "0000000000000010", Path: path, Name: "a.csv",
		Format: sniff.FormatCSV, Delimiter: ',', IndexDir: dir,
	}
	require.NoError(t, c.Start(context.Background(), req))

	st := waitForState(t, c, req.FileID, StateComplete)
	require.Equal(t, int64(2), st.Result.TotalRecords)

	catalog, err := idx.GetCatalog(req.FileID)
	require.NoError(t, err)
	require.NotNil(t, catalog)
}

func TestStartRejectsConcurrentJobForSameFile(t *testing.T) {
	c, _, dir := setup(t)

	path := filepath.Join(dir, "big.csv")
	var sb strings.Builder
	sb.WriteString("a,b\n")
	for i := 0; i < 50000; i++ {
		sb.WriteString("1,2\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))

	req := indexwriter.Request{
		FileID: "0000000000000011", Path: path, Name: "big.csv",
		Format: sniff.FormatCSV, Delimiter: ',', IndexDir: dir,
	}
	require.NoError(t, c.Start(context.Background(), req))
	err := c.Start(context.Background(), req)
	require.ErrorIs(t, err, ErrAlreadyIndexing)

	waitForState(t, c, req.FileID, StateComplete)
}

func TestCancelRollsBackArtifacts(t *testing.T) {
	c, idx, dir := setup(t)

	path := filepath.Join(dir, "cancelme.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0644))

	req := indexwriter.Request{
		FileID: "0000000000000012", Path: path, Name: "cancelme.csv",
		Format: sniff.FormatCSV, Delimiter: ',', IndexDir: dir,
	}

	// Cancellation is checked at chunk boundaries inside indexwriter/streamparse;
	// a pre-cancelled parent context guarantees the job trips that check on its
	// very first iteration instead of racing the goroutine's own scheduling.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Start(ctx, req))

	st := waitForState(t, c, req.FileID, StateCancelled)
	require.Equal(t, StateCancelled, st.State)

	catalog, err := idx.GetCatalog(req.FileID)
	require.NoError(t, err)
	require.Nil(t, catalog)

	_, statErr := os.Stat(indexwriter.PositionTablePath(dir, req.FileID))
	require.True(t, os.IsNotExist(statErr))
}

func TestStatusUnknownFileIsIdle(t *testing.T) {
	c, _, _ := setup(t)
	st, ok := c.Status("no-such-file")
	require.False(t, ok)
	require.Equal(t, StateIdle, st.State)
}
