package model

import "strconv"

// Recognized input column headers. Matching is whitespace-trimmed and case-sensitive.
const (
	ColumnID                  = "Unique ID"
	ColumnAddress             = "Address"
	ColumnCity                = "City"
	ColumnPostalCode          = "Postal Code"
	ColumnLatitude            = "Latitude"
	ColumnLongitude           = "Longitude"
	ColumnGeocodingConfidence = "Geocoding Confidence"
)

// CoreColumns are the columns parsed into typed LocationRecord fields.
var CoreColumns = []string{
	ColumnID,
	ColumnAddress,
	ColumnCity,
	ColumnPostalCode,
	ColumnLatitude,
	ColumnLongitude,
	ColumnGeocodingConfidence,
}

// AuditedFields are the descriptive columns checked by the completeness audit.
var AuditedFields = []string{
	"Sum Insured",
	"Deductible",
	"Mapped LoB",
	"Construction Type",
	"Occupancy",
	"Year Built",
	"Number of Stories",
	"Basement",
}

// Value returns the record's value for a column header as text, and whether
// it is present.
func (r LocationRecord) Value(column string) (string, bool) {
	switch column {
	case ColumnID:
		return r.ID, r.ID != ""
	case ColumnAddress:
		return StringOrEmpty(r.Address), r.Address != nil
	case ColumnCity:
		return StringOrEmpty(r.City), r.City != nil
	case ColumnPostalCode:
		return StringOrEmpty(r.PostalCode), r.PostalCode != nil
	case ColumnLatitude:
		return formatOptional(r.Latitude)
	case ColumnLongitude:
		return formatOptional(r.Longitude)
	case ColumnGeocodingConfidence:
		return formatOptional(r.GeocodingConfidence)
	default:
		return r.Attribute(column)
	}
}

func formatOptional(f *float64) (string, bool) {
	if f == nil {
		return "", false
	}
	return strconv.FormatFloat(*f, 'f', -1, 64), true
}
