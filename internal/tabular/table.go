// Package tabular reads policy location files (CSV or XLSX) into records and
// writes enriched records back out with the derived columns appended.
package tabular

import (
	"fmt"
	"strings"

	"github.com/sells-group/dq-cli/internal/model"
)

// Table is a parsed input file.
type Table struct {
	// Columns holds the trimmed header in file order.
	Columns []string
	Records []model.LocationRecord
}

// HasColumn reports whether the header contains name exactly.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns returns a *MissingColumnError listing every absent column.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

// MissingColumnError is returned when a feature's required columns are absent
// from the input schema. Only the dependent feature is skipped.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "tabular: missing required column(s) " + strings.Join(quoted, ", ")
}

// ValidationColumns are required by the batch validation.
var ValidationColumns = []string{model.ColumnAddress, model.ColumnCity}
