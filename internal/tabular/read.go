package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format is a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(s); ext != "" {
		s = strings.TrimPrefix(ext, ".")
	}
	switch s {
	case "csv", "txt":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("tabular: unsupported format %q", s)
	}
}

// ReadFile reads a CSV or XLSX file, chosen by extension.
func ReadFile(path string) (*Table, error) {
	format, err := ParseFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f, CSVOptions{})
	case FormatXLSX:
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("tabular: cannot read %s input", format)
	}
}

// ReadBytes parses an in-memory upload whose format is given by name.
func ReadBytes(name string, data []byte) (*Table, error) {
	format, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return ReadCSV(bytes.NewReader(data), CSVOptions{})
	case FormatXLSX:
		return ReadXLSXBytes(data, XLSXOptions{})
	default:
		return nil, eris.Errorf("tabular: cannot read %s input", format)
	}
}
