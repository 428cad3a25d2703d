// Package stats implements the Statistics Accumulator (C9): while the
// streaming parser runs, it tracks per-column value distributions and an
// approximate distinct-value count, feeding the stats row written alongside
// the catalog and search rows.
package stats

import (
	"sort"

	"github.com/dataexplorer/engine/internal/searchindex"
)

// MaxColumns bounds how many declared columns get a distribution tracked.
const MaxColumns = 10

// ExactCap is the number of distinct values tracked exactly per column
// before the accumulator falls back to the bloom filter for distinct-count
// estimation; values seen after the cap contribute to the count estimate
// but are not added to the exact top-value map (documented skew, per spec).
const ExactCap = 100

// TopValuesReturned bounds how many (value, count) pairs are kept per
// column in the final stats entry.
const TopValuesReturned = 30

type columnAccumulator struct {
	name    string
	counts  map[string]int64
	bloom   *bloomFilter
	dropped bool // true once ExactCap has been reached at least once
}

// Accumulator tracks distributions for up to MaxColumns declared columns.
type Accumulator struct {
	columns []*columnAccumulator
	index   map[string]int
}

// New prepares an accumulator for the given declared columns, tracking only
// the first MaxColumns of them.
func New(declaredColumns []string) *Accumulator {
	n := len(declaredColumns)
	if n > MaxColumns {
		n = MaxColumns
	}
	a := &Accumulator{
		columns: make([]*columnAccumulator, n),
		index:   make(map[string]int, n),
	}
	for i := 0; i < n; i++ {
		a.columns[i] = &columnAccumulator{
			name:   declaredColumns[i],
			counts: make(map[string]int64),
			bloom:  newBloomFilter(4096, 0.01),
		}
		a.index[declaredColumns[i]] = i
	}
	return a
}

// Observe records one record's values, keyed by declared column name. A
// missing column or a value that serializes to the empty string is ignored.
func (a *Accumulator) Observe(values map[string]string) {
	for _, col := range a.columns {
		v, ok := values[col.name]
		if !ok || v == "" {
			continue
		}
		col.bloom.Add(v)
		if _, seen := col.counts[v]; !seen {
			if len(col.counts) >= ExactCap {
				col.dropped = true
				continue
			}
		}
		col.counts[v]++
	}
}

// Finalize produces the stats entry for fileID from the accumulated state.
func (a *Accumulator) Finalize(fileID string) searchindex.StatsEntry {
	entry := searchindex.StatsEntry{FileID: fileID}
	for _, col := range a.columns {
		entry.Columns = append(entry.Columns, searchindex.ColumnStats{
			Column:         col.name,
			Type:           "string",
			ApproxDistinct: col.approxDistinct(),
			TopValues:      col.topValues(),
		})
	}
	return entry
}

func (c *columnAccumulator) approxDistinct() int64 {
	if !c.dropped {
		return int64(len(c.counts))
	}
	return c.bloom.EstimatedCardinality()
}

func (c *columnAccumulator) topValues() []searchindex.ValueCount {
	out := make([]searchindex.ValueCount, 0, len(c.counts))
	for v, n := range c.counts {
		out = append(out, searchindex.ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > TopValuesReturned {
		out = out[:TopValuesReturned]
	}
	return out
}
