package streamparse

import (
	"encoding/json"

	"github.com/dataexplorer/engine/internal/value"
)

// JSONArrayParser implements Parser for a single top-level JSON array of
// objects. It runs a byte-level state machine (insideArray, braceDepth,
// inString, escapeNext) rather than decoding the whole array at once, so a
// multi-gigabyte array never has to be materialized to find one record.
type JSONArrayParser struct {
	insideArray bool
	inString    bool
	escapeNext  bool
	recording   bool
	braceDepth  int
	recBuf      []byte
	recStart    int64

	columns  []string
	statsN   int
	warnings int
}

func NewJSONArrayParser() *JSONArrayParser { return &JSONArrayParser{} }

func (p *JSONArrayParser) Columns() []string { return p.columns }
func (p *JSONArrayParser) Warnings() int     { return p.warnings }

func (p *JSONArrayParser) Feed(data []byte, base int64, atEOF bool, emit func(Emission)) (int, error) {
	for i := 0; i < len(data); i++ {
		b := data[i]

		if p.recording {
			p.recBuf = append(p.recBuf, b)
		}

		if p.escapeNext {
			p.escapeNext = false
			continue
		}
		if p.inString {
			switch b {
			case '\\':
				p.escapeNext = true
			case '"':
				p.inString = false
			}
			continue
		}

		switch b {
		case '"':
			p.inString = true
		case '[':
			if !p.insideArray {
				p.insideArray = true
			}
		case '{':
			if !p.recording {
				if p.insideArray {
					p.recording = true
					p.recStart = base + int64(i)
					p.recBuf = append(p.recBuf[:0], b)
				}
			} else {
				p.braceDepth++
			}
		case '}':
			if p.recording {
				if p.braceDepth == 0 {
					p.closeRecord(emit)
				} else {
					p.braceDepth--
				}
			}
		}
	}
	// Every byte handed to us is either absorbed into recBuf or is structural
	// array/whitespace noise we never need again: always fully consumed.
	return len(data), nil
}

func (p *JSONArrayParser) closeRecord(emit func(Emission)) {
	raw := p.recBuf
	offset := p.recStart
	p.recording = false
	p.recBuf = nil
	p.braceDepth = 0

	if p.columns == nil {
		keys, values, err := decodeOrderedObject(raw)
		if err != nil {
			p.warnings++
			return
		}
		p.columns = declaredColumnsFromOrder(keys, values)
		p.statsN = minInt(StatsColumnCount, len(p.columns))
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
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

// FindJSONObjectEnd scans buf starting at the '{' byte at index start and
// returns the index of its matching closing '}', running the same
// depth/inString/escape state machine Feed runs over a chunk stream, but
// over a single already-bounded slice. Used by the Record Reader to locate
// one record's end within its scratch read without decoding the whole
// buffer. ok is false if no match is found before the end of buf.
func FindJSONObjectEnd(buf []byte, start int) (int, bool) {
	inString := false
	escapeNext := false
	depth := 0
	for i := start; i < len(buf); i++ {
		b := buf[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escapeNext = true
			case '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			if i != start {
				depth++
			}
		case '}':
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}
