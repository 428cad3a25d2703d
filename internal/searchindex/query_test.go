package searchindex

import (
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search.db")
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func seedRows(t *testing.T, idx *Index, fileID string, names []string) {
	t.Helper()
	tx, err := idx.Begin()
	if err != nil {
		t.Fatal(err)
	}
	for i, name := range names {
		err := InsertSearchRow(tx, SearchRow{
			FileID:     fileID,
			RowIndex:   int64(i),
			Position:   int64(i * 100),
			Projection: []string{name},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestSearchOperators(t *testing.T) {
	idx := openTestIndex(t)
	seedRows(t, idx, "f1", []string{"alice", "alicia", "bob"})
	searchable := []string{"name"}

	cases := []struct {
		op    Operator
		value string
		want  int64
	}{
		{OpEquals, "alice", 1},
		{OpStartsWith, "ali", 2},
		{OpEndsWith, "ce", 1},
		{OpNot, "ali", 1},
		{OpRegex, "^ali.*", 2},
	}

	for _, c := range cases {
		rows, total, err := idx.Search("f1", searchable, []SearchField{{Column: "name", Value: c.value, Operator: c.op}}, 1, 10)
		if err != nil {
			t.Fatalf("%s: %v", c.op, err)
		}
		if total != c.want {
			t.Errorf("%s %q: total=%d want %d", c.op, c.value, total, c.want)
		}
		if int64(len(rows)) != total {
			t.Errorf("%s %q: len(rows)=%d want %d", c.op, c.value, len(rows), total)
		}
	}
}

func TestPageEmptyFilterIsFullScan(t *testing.T) {
	idx := openTestIndex(t)
	seedRows(t, idx, "f1", []string{"a", "b", "c"})

	rows, total, err := idx.Page("f1", []string{"name"}, 1, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("expected full scan of 3 rows, got total=%d len=%d", total, len(rows))
	}
	for i, r := range rows {
		if r.RowIndex != int64(i) {
			t.Errorf("expected ordered row_index %d, got %d", i, r.RowIndex)
		}
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	idx := openTestIndex(t)
	tx, err := idx.Begin()
	if err != nil {
		t.Fatal(err)
	}
	row := CatalogRow{
		FileID: "abc123", Path: "/tmp/x.csv", Name: "x.csv", Size: 100,
		Type: "file", Format: "csv", Delimiter: ",", IndexedAtUnixMS: 1000,
		TotalRecords: 2, Columns: []string{"a", "b"}, SearchableColumns: []string{"a", "b"},
	}
	if err := PutCatalog(tx, row); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := idx.GetCatalog("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.TotalRecords != 2 || got.Columns[1] != "b" {
		t.Fatalf("unexpected catalog row: %+v", got)
	}

	if err := idx.DeleteFile("abc123"); err != nil {
		t.Fatal(err)
	}
	got, err = idx.GetCatalog("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil catalog row after delete, got %+v", got)
	}
}
