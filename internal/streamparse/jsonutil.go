package streamparse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dataexplorer/engine/internal/value"
)

// decodeOrderedObject decodes a single JSON object, preserving the source
// key order (map iteration in Go does not), so declared-column discovery
// sees columns in the order they appear in the file rather than an
// arbitrary one.
func decodeOrderedObject(raw []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil, fmt.Errorf("streamparse: not a JSON object")
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("streamparse: non-string object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// isObjectRaw reports whether a raw JSON value is an object, used to
// exclude nested-object fields from declared/searchable columns.
func isObjectRaw(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// maxDeclaredColumns bounds how many top-level fields become declared
// columns for JSON-object-record formats (NDJSON, JSON-array).
const maxDeclaredColumns = 20

func declaredColumnsFromOrder(keys []string, values map[string]json.RawMessage) []string {
	declared := make([]string, 0, minInt(len(keys), maxDeclaredColumns))
	for _, k := range keys {
		if len(declared) >= maxDeclaredColumns {
			break
		}
		if isObjectRaw(values[k]) {
			continue
		}
		declared = append(declared, k)
	}
	return declared
}

// DecodeJSONObjectValues decodes a single JSON object into a full
// declared-column value map: primitive and null fields pass through
// verbatim, array fields are kept as their serialized JSON form, and
// object-valued fields are dropped. Shared by the NDJSON/JSON-array
// streaming parsers' column discovery (via decodeOrderedObject, capped to
// the leading stats columns) and the Record Reader's single-record decode
// (uncapped), so the two never disagree on which fields survive.
func DecodeJSONObjectValues(raw []byte) (map[string]value.Value, error) {
	keys, raws, err := decodeOrderedObject(raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]value.Value, len(keys))
	for _, k := range keys {
		r := raws[k]
		if isObjectRaw(r) {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("streamparse: decode field %q: %w", k, err)
		}
		out[k] = value.FromAny(v)
	}
	return out, nil
}
