package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	// Delimiter forces a separator. 0 sniffs ',' or ';' from the header line.
	Delimiter rune
}

// ReadCSV parses a CSV stream.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	br := bufio.NewReader(r)

	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read csv")
	}
	return fromRows(rows, delim == ';')
}

// sniffDelimiter peeks at the first line. Exports from German spreadsheet
// software use ';' because ',' is the decimal separator.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	if bytes.Count(peek, []byte{';'}) > bytes.Count(peek, []byte{','}) {
		return ';'
	}
	return ','
}
