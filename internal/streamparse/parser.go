// Package streamparse implements the engine's streaming format parsers (C3):
// one variant per source format, each discovering record boundaries and a
// narrow searchable projection from a bounded chunk buffer, never holding
// an entire source file in memory.
package streamparse

import (
	"strings"
	"time"
)

// Emission is a single discovered record: its start byte offset in the
// source file, and the raw (not yet lowercased) string values of its first
// min(10, len(declared columns)) columns, keyed by declared column name.
// The index writer derives the six-column search projection and the
// statistics accumulator's input from this same map, so a parser only ever
// has to compute a record's field values once.
type Emission struct {
	Offset int64
	Values map[string]string
}

// Parser is implemented once per source format. Feed is called repeatedly
// by the chunk driver (Run) with the bytes accumulated so far (carried-over
// leftover plus the newest chunk read). It must process every complete
// record it can find, invoke emit for each, and return how many leading
// bytes were fully consumed; any unconsumed suffix is retained and
// prepended to the next call. When atEOF is true there will be no further
// bytes, so a parser must treat any trailing unconsumed data as final.
type Parser interface {
	Feed(data []byte, base int64, atEOF bool, emit func(Emission)) (consumed int, err error)
	// Columns returns the declared column list once known (nil until the
	// first record has been successfully decoded).
	Columns() []string
	// Warnings returns the count of corrupt/skipped records seen so far.
	Warnings() int
}

// Progress reports parser advancement at most once per throttle interval.
type Progress struct {
	Percent      float64
	RecordsSoFar int64
	ETA          time.Duration
}

// Status is the terminal state of a Run call.
type Status string

const (
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Result summarizes a completed or cancelled parse run.
type Result struct {
	Status       Status
	Columns      []string
	TotalRecords int64
	Warnings     int
}

// Project lowercases a raw value and strips the legacy '|' separator before
// it is written into a search-table col0..col5 cell. The pipe-stripping is
// no longer structurally necessary now that the secondary index is
// relational rather than a delimited text blob, but it is preserved for
// output stability (see DESIGN.md open questions).
func Project(s string) string {
	s = strings.ToLower(s)
	if strings.IndexByte(s, '|') == -1 {
		return s
	}
	return strings.ReplaceAll(s, "|", "")
}

// StatsColumnCount bounds how many leading declared columns are retained in
// Emission.Values for the statistics accumulator.
const StatsColumnCount = 10

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
