package tabular

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dq-cli/internal/model"
)

// Appended output columns, in order, before the flag columns.
const (
	ColumnAPILatitude       = "API_Latitude"
	ColumnAPILongitude      = "API_Longitude"
	ColumnAPIConfidence     = "API_Confidence"
	ColumnUseAPICoordinates = "Use_API_Coordinates"
	ColumnCoordDiffKm       = "Coord_Diff_km"
	ColumnH3Cell            = "H3_Cell"
)

var derivedColumns = []string{
	ColumnAPILatitude,
	ColumnAPILongitude,
	ColumnAPIConfidence,
	ColumnUseAPICoordinates,
	ColumnCoordDiffKm,
	ColumnH3Cell,
}

// OutputColumns returns the input header followed by the derived and flag columns.
func OutputColumns(input []string) []string {
	out := make([]string, 0, len(input)+len(derivedColumns)+len(model.RowFlags)+1)
	out = append(out, input...)
	out = append(out, derivedColumns...)
	for _, f := range model.RowFlags {
		out = append(out, string(f))
	}
	return append(out, string(model.FlagLargeCoordinateDiscrepancy))
}

// cell is one output value. Numeric and boolean cells keep their type in XLSX.
type cell struct {
	text    string
	num     *float64
	boolean *bool
}

func (c cell) String() string {
	switch {
	case c.num != nil:
		return strconv.FormatFloat(*c.num, 'f', -1, 64)
	case c.boolean != nil:
		return strconv.FormatBool(*c.boolean)
	default:
		return c.text
	}
}

func boolCell(b bool) cell { return cell{boolean: &b} }

func rowCells(rec model.EnrichedRecord, input []string) []cell {
	cells := make([]cell, 0, len(input)+len(derivedColumns)+len(model.RowFlags)+1)
	for _, col := range input {
		// Original cells are written back verbatim.
		cells = append(cells, cell{text: rec.Attributes[col]})
	}
	cells = append(cells,
		cell{num: rec.APILatitude},
		cell{num: rec.APILongitude},
		cell{num: rec.APIConfidence},
		boolCell(rec.UseAPICoordinates),
		cell{num: rec.CoordinateDiffKm},
		cell{text: rec.H3Cell},
	)
	for _, f := range model.RowFlags {
		cells = append(cells, boolCell(rec.Flags.Get(f)))
	}
	return append(cells, boolCell(rec.LargeCoordinateDiscrepancy))
}

// WriteCSV writes the enriched records as CSV.
func WriteCSV(w io.Writer, input []string, records []model.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputColumns(input)); err != nil {
		return eris.Wrap(err, "tabular: write csv header")
	}
	for _, rec := range records {
		cells := rowCells(rec, input)
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = c.String()
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "tabular: write csv row %d", rec.Index)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "tabular: flush csv")
}

// WriteXLSX writes the enriched records as a single-sheet workbook.
func WriteXLSX(w io.Writer, input []string, records []model.EnrichedRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Validated")
	if err != nil {
		return eris.Wrap(err, "tabular: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range OutputColumns(input) {
		header.AddCell().SetString(col)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for _, c := range rowCells(rec, input) {
			xc := row.AddCell()
			switch {
			case c.num != nil:
				xc.SetFloat(*c.num)
			case c.boolean != nil:
				xc.SetBool(*c.boolean)
			default:
				xc.SetString(c.text)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "tabular: write xlsx")
	}
	return nil
}
