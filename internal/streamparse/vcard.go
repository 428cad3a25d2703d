package streamparse

import (
	"bytes"
	"strings"
)

// VCardColumns is the fixed declared-column list for vCard sources; the
// first six are the searchable projection. Exported so the Record Reader
// (C7) can zip decoded property maps against the same canonical order.
var VCardColumns = []string{"FN", "N", "EMAIL", "TEL", "ORG", "ADR", "NOTE", "URL", "BDAY", "TITLE"}

// VCardParser implements Parser for RFC-6350-flavored vCard text. A record
// spans from a line equal to BEGIN:VCARD to its matching END:VCARD;
// continuation lines (leading space or tab) are unfolded into the previous
// property's value.
type VCardParser struct {
	inRecord    bool
	recordStart int64
	props       map[string]string
	lastKey     string
	warnings    int
}

func NewVCardParser() *VCardParser { return &VCardParser{} }

func (p *VCardParser) Columns() []string { return VCardColumns }
func (p *VCardParser) Warnings() int     { return p.warnings }

func (p *VCardParser) Feed(data []byte, base int64, atEOF bool, emit func(Emission)) (int, error) {
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

func (p *VCardParser) processLine(line []byte, offset int64, emit func(Emission)) {
	trimmed := strings.TrimSpace(string(line))

	switch trimmed {
	case "BEGIN:VCARD":
		p.inRecord = true
		p.recordStart = offset
		p.props = make(map[string]string)
		p.lastKey = ""
		return
	case "END:VCARD":
		if p.inRecord {
			emit(Emission{Offset: p.recordStart, Values: p.values()})
			p.inRecord = false
		}
		return
	}

	if !p.inRecord {
		return
	}

	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		if p.lastKey != "" {
			p.props[p.lastKey] += string(line[1:])
		}
		return
	}

	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx == -1 {
		p.warnings++
		return
	}
	keyPart := line[:colonIdx]
	val := string(line[colonIdx+1:])
	if semi := bytes.IndexByte(keyPart, ';'); semi != -1 {
		keyPart = keyPart[:semi]
	}
	key := strings.ToUpper(string(keyPart))

	switch key {
	case "BEGIN", "END", "VERSION":
		p.lastKey = ""
		return
	case "EMAIL", "TEL":
		if existing, ok := p.props[key]; ok && existing != "" {
			p.props[key] = existing + ", " + val
		} else {
			p.props[key] = val
		}
	default:
		if _, ok := p.props[key]; !ok {
			p.props[key] = val
		}
	}
	p.lastKey = key
}

func (p *VCardParser) values() map[string]string {
	n := minInt(StatsColumnCount, len(VCardColumns))
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		out[VCardColumns[i]] = p.props[VCardColumns[i]]
	}
	return out
}
