package rules

import (
	"github.com/rotisserie/eris"
	"github.com/uber/h3-go/v4"
)

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) latLng() h3.LatLng {
	return h3.NewLatLng(p.Lat, p.Lon)
}

// DistanceKm returns the great-circle distance between a and b in kilometers.
// It is symmetric and zero for identical points.
func DistanceKm(a, b Point) float64 {
	return h3.GreatCircleDistanceKm(a.latLng(), b.latLng())
}

// Cell returns the H3 index of p at the given resolution as a hex string.
func Cell(p Point, resolution int) (string, error) {
	cell, err := h3.LatLngToCell(p.latLng(), resolution)
	if err != nil {
		return "", eris.Wrapf(err, "rules: h3 cell at res %d", resolution)
	}
	return cell.String(), nil
}
