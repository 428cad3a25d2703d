package stats

import "testing"

func TestAccumulatorTopValues(t *testing.T) {
	a := New([]string{"name"})
	a.Observe(map[string]string{"name": "alice"})
	a.Observe(map[string]string{"name": "bob"})
	a.Observe(map[string]string{"name": "alice"})

	entry := a.Finalize("f1")
	if len(entry.Columns) != 1 {
		t.Fatalf("expected 1 column, got %d", len(entry.Columns))
	}
	top := entry.Columns[0].TopValues
	if len(top) != 2 {
		t.Fatalf("expected 2 distinct values, got %d", len(top))
	}
	if top[0].Value != "alice" || top[0].Count != 2 {
		t.Errorf("expected alice to lead with count 2, got %+v", top[0])
	}
	if entry.Columns[0].ApproxDistinct != 2 {
		t.Errorf("expected exact distinct count 2 below cap, got %d", entry.Columns[0].ApproxDistinct)
	}
}

func TestAccumulatorCapsAtMaxColumns(t *testing.T) {
	cols := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		cols = append(cols, string(rune('a'+i)))
	}
	a := New(cols)
	if len(a.columns) != MaxColumns {
		t.Fatalf("expected %d tracked columns, got %d", MaxColumns, len(a.columns))
	}
}

func TestBloomFilterEstimate(t *testing.T) {
	bf := newBloomFilter(1000, 0.01)
	for i := 0; i < 500; i++ {
		bf.Add(string(rune(i)) + "-key")
	}
	est := bf.EstimatedCardinality()
	if est < 400 || est > 600 {
		t.Errorf("estimate %d too far from 500", est)
	}
}
