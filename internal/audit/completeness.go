// Package audit computes dataset-level reports that do not involve geocoding:
// field completeness and policy counts.
package audit

import (
	"github.com/sells-group/dq-cli/internal/model"
)

// Band buckets a completeness ratio for display.
type Band string

const (
	BandRed    Band = "red"    // below 50%
	BandYellow Band = "yellow" // 50% up to 80%
	BandGreen  Band = "green"  // 80% and above
)

// BandFor returns the band of a ratio in percent.
func BandFor(ratio float64) Band {
	switch {
	case ratio >= 80:
		return BandGreen
	case ratio >= 50:
		return BandYellow
	default:
		return BandRed
	}
}

// FieldCompleteness is one line of the completeness report.
type FieldCompleteness struct {
	Field    string  `json:"field"`
	InSchema bool    `json:"in_schema"`
	Present  int     `json:"present"`
	Empty    int     `json:"empty"`
	Ratio    float64 `json:"ratio"` // percent of records with a value, 0 when there are no records
	Band     Band    `json:"band"`
}

// Report is the completeness report, one entry per requested field in order.
type Report struct {
	Total  int                 `json:"total"`
	Fields []FieldCompleteness `json:"fields"`
}

// Ratio returns the ratio for a field and whether it was reported.
func (r Report) Ratio(field string) (float64, bool) {
	for _, f := range r.Fields {
		if f.Field == field {
			return f.Ratio, true
		}
	}
	return 0, false
}

// Completeness reports, for each field, the percentage of records holding a
// value. schema is the input header; fields not in it are reported with
// InSchema=false and a zero ratio. A nil schema treats every field as present
// in the schema.
func Completeness(records []model.LocationRecord, schema, fields []string) Report {
	inSchema := func(string) bool { return true }
	if schema != nil {
		cols := make(map[string]struct{}, len(schema))
		for _, c := range schema {
			cols[c] = struct{}{}
		}
		inSchema = func(f string) bool {
			_, ok := cols[f]
			return ok
		}
	}

	report := Report{Total: len(records), Fields: make([]FieldCompleteness, 0, len(fields))}
	for _, field := range fields {
		fc := FieldCompleteness{Field: field, InSchema: inSchema(field)}
		if fc.InSchema {
			for _, rec := range records {
				if _, ok := rec.Value(field); ok {
					fc.Present++
				}
			}
		}
		fc.Empty = len(records) - fc.Present
		if len(records) > 0 {
			fc.Ratio = float64(fc.Present) / float64(len(records)) * 100
		}
		fc.Band = BandFor(fc.Ratio)
		report.Fields = append(report.Fields, fc)
	}
	return report
}
