package streamparse

import (
	"bytes"
	"encoding/json"

	"github.com/dataexplorer/engine/internal/value"
)

// NDJSONParser implements Parser for newline-delimited JSON: one object per
// line, no header row. Declared columns are discovered from the first
// successfully decoded object's top-level scalar/array fields.
type NDJSONParser struct {
	columns  []string
	statsN   int
	warnings int
}

func NewNDJSONParser() *NDJSONParser { return &NDJSONParser{} }

func (p *NDJSONParser) Columns() []string { return p.columns }
func (p *NDJSONParser) Warnings() int     { return p.warnings }

func (p *NDJSONParser) Feed(data []byte, base int64, atEOF bool, emit func(Emission)) (int, error) {
	consumed := 0
	for {
		rest := data[consumed:]
		idx := bytes.IndexByte(rest, '\n')

		var line []byte
		var lineLen int
		if idx == -1 {
			if !atEOF || len(rest) == 0 {
				break
			}
			line = rest
			lineLen = len(rest)
		} else {
			line = rest[:idx]
			lineLen = idx + 1
		}

		offset := base + int64(consumed)
		p.processLine(bytes.TrimSuffix(line, []byte("\r")), offset, emit)

		consumed += lineLen
		if idx == -1 {
			break
		}
	}
	return consumed, nil
}

func (p *NDJSONParser) processLine(line []byte, offset int64, emit func(Emission)) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	if trimmed[0] != '{' {
		p.warnings++
		return
	}

	if p.columns == nil {
		keys, values, err := decodeOrderedObject(trimmed)
		if err != nil {
			p.warnings++
			return
		}
		p.columns = declaredColumnsFromOrder(keys, values)
		p.statsN = minInt(StatsColumnCount, len(p.columns))
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		p.warnings++
		return
	}

	values := make(map[string]string, p.statsN)
	for i := 0; i < p.statsN; i++ {
		col := p.columns[i]
		values[col] = value.FromAny(generic[col]).String()
	}
	emit(Emission{Offset: offset, Values: values})
}
