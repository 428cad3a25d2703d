package recordblock

import (
	"bytes"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	const n = 20000
	for i := int64(0); i < n; i++ {
		if err := w.Append(i * 37); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Len() != n {
		t.Fatalf("Len() = %d, want %d", r.Len(), n)
	}
	if len(r.Footer.Blocks) < 2 {
		t.Fatalf("expected multiple blocks for %d entries, got %d", n, len(r.Footer.Blocks))
	}

	for _, row := range []int64{0, 1, 19999, 10000, 10} {
		got, err := r.EntryAt(row)
		if err != nil {
			t.Fatalf("EntryAt(%d): %v", row, err)
		}
		if want := row * 37; got != want {
			t.Errorf("EntryAt(%d) = %d, want %d", row, got, want)
		}
	}
}

func TestEntryAtOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Append(10); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.EntryAt(5); err == nil {
		t.Error("expected error for out-of-range row")
	}
}
