// Package model holds the record types shared by the validation engine, the
// batch processor and the tabular readers and writers.
package model

import (
	"math"
	"strings"
)

// LocationRecord is one insured location / policy line as read from the input file.
// Optional values are nil when the cell was empty or could not be parsed.
type LocationRecord struct {
	Index               int               `json:"index"`
	ID                  string            `json:"id,omitempty"`
	Address             *string           `json:"address,omitempty"`
	City                *string           `json:"city,omitempty"`
	PostalCode          *string           `json:"postal_code,omitempty"`
	Latitude            *float64          `json:"latitude,omitempty"`
	Longitude           *float64          `json:"longitude,omitempty"`
	GeocodingConfidence *float64          `json:"geocoding_confidence,omitempty"`
	Attributes          map[string]string `json:"attributes,omitempty"` // every input cell by header, raw text
}

// HasCoordinates reports whether both latitude and longitude are present.
// A single missing half counts as missing coordinates.
func (r LocationRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Attribute returns the trimmed raw value of an extra column and whether it
// holds a value. Missing-value markers such as "N/A" count as empty.
func (r LocationRecord) Attribute(name string) (string, bool) {
	v, ok := r.Attributes[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, !IsMissing(v)
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// StringOrEmpty dereferences s, returning "" for nil.
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// missingMarkers are cell texts that spreadsheet and pandas exports write for
// an empty cell. Matching is exact.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a cell is blank or holds a missing-value marker.
func IsMissing(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	_, ok := missingMarkers[raw]
	return ok
}

// OptionalString returns nil for blank or missing-marker input and the trimmed
// value otherwise.
func OptionalString(raw string) *string {
	if IsMissing(raw) {
		return nil
	}
	raw = strings.TrimSpace(raw)
	return &raw
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
