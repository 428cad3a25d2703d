package streamparse

import (
	"context"
	"os"
	"testing"
)

func writeTempNamed(t *testing.T, ext, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stream-*"+ext)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestNDJSONParserBasic(t *testing.T) {
	content := `{"name":"Alice","tags":["a","b"],"nested":{"x":1}}
{"name":"Bob","tags":[],"nested":{"x":2}}
not json
`
	path := writeTempNamed(t, ".json", content)

	p := NewNDJSONParser()
	var emissions []Emission
	res, err := Run(context.Background(), path, p, Options{}, func(e Emission) {
		emissions = append(emissions, e)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emissions) != 2 {
		t.Fatalf("expected 2 decoded records, got %d", len(emissions))
	}
	if res.Warnings != 1 {
		t.Errorf("expected 1 warning for the malformed line, got %d", res.Warnings)
	}
	// "nested" is an object and must be excluded from declared columns.
	for _, c := range res.Columns {
		if c == "nested" {
			t.Errorf("nested object field leaked into declared columns: %v", res.Columns)
		}
	}
	if emissions[0].Values["name"] != "Alice" {
		t.Errorf("expected raw name value, got %q", emissions[0].Values["name"])
	}
}
