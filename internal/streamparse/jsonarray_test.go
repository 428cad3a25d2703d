package streamparse

import (
	"context"
	"testing"
)

func TestJSONArrayParserBasic(t *testing.T) {
	content := `[
  {"name": "Alice", "meta": {"a": 1}, "score": 10},
  {"name": "Bob, Jr.", "meta": {"a": 2}, "score": 20}
]`
	path := writeTempNamed(t, ".json", content)

	p := NewJSONArrayParser()
	var emissions []Emission
	res, err := Run(context.Background(), path, p, Options{ChunkSize: 16}, func(e Emission) {
		emissions = append(emissions, e)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emissions) != 2 {
		t.Fatalf("expected 2 records, got %d", len(emissions))
	}
	for _, c := range res.Columns {
		if c == "meta" {
			t.Errorf("nested object field leaked into declared columns: %v", res.Columns)
		}
	}
	if emissions[1].Values["name"] != "Bob, Jr." {
		t.Errorf("expected embedded comma preserved, got %q", emissions[1].Values["name"])
	}
}
