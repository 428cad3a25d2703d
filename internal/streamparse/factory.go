package streamparse

import (
	"fmt"

	"github.com/dataexplorer/engine/internal/sniff"
)

// New constructs the Parser appropriate for a sniffed format.
func New(format sniff.Format, delimiter byte) (Parser, error) {
	switch format {
	case sniff.FormatCSV:
		return NewCSVParser(delimiter), nil
	case sniff.FormatNDJSON:
		return NewNDJSONParser(), nil
	case sniff.FormatJSONArray:
		return NewJSONArrayParser(), nil
	case sniff.FormatVCard:
		return NewVCardParser(), nil
	default:
		return nil, fmt.Errorf("streamparse: unsupported format %q", format)
	}
}
