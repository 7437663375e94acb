package tabular

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dq-cli/internal/model"
)

// FromRows builds a Table from raw rows, the first of which is the header.
// Blank rows are skipped. Unparseable numeric cells become absent values.
func FromRows(rows [][]string) (*Table, error) {
	return fromRows(rows, false)
}

// fromRows is FromRows with decimalComma reading "52,52" as 52.52.
func fromRows(rows [][]string, decimalComma bool) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("tabular: file has no header row")
	}

	header := make([]string, len(rows[0]))
	colIdx := make(map[string]int, len(header))
	for i, col := range rows[0] {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		col = strings.TrimSpace(col)
		header[i] = col
		if col != "" {
			colIdx[col] = i
		}
	}

	t := &Table{Columns: header}
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		t.Records = append(t.Records, parseRecord(len(t.Records), row, header, colIdx, decimalComma))
	}
	return t, nil
}

func parseRecord(index int, row, header []string, colIdx map[string]int, decimalComma bool) model.LocationRecord {
	attrs := make(map[string]string, len(header))
	for i, col := range header {
		if col == "" || i >= len(row) {
			continue
		}
		attrs[col] = row[i]
	}

	get := func(col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	return model.LocationRecord{
		Index:               index,
		ID:                  model.StringOrEmpty(model.OptionalString(get(model.ColumnID))),
		Address:             model.OptionalString(get(model.ColumnAddress)),
		City:                model.OptionalString(get(model.ColumnCity)),
		PostalCode:          model.OptionalString(get(model.ColumnPostalCode)),
		Latitude:            parseFloat(get(model.ColumnLatitude), decimalComma),
		Longitude:           parseFloat(get(model.ColumnLongitude), decimalComma),
		GeocodingConfidence: parseFloat(get(model.ColumnGeocodingConfidence), decimalComma),
		Attributes:          attrs,
	}
}

// parseFloat returns nil for blank, non-numeric, NaN or infinite input. With
// decimalComma, a value with one comma and no dot uses the comma as the
// decimal separator.
func parseFloat(raw string, decimalComma bool) *float64 {
	raw = strings.TrimSpace(raw)
	if model.IsMissing(raw) {
		return nil
	}
	if decimalComma && strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !model.IsFinite(f) {
		return nil
	}
	return &f
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
