package rules

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// BoundingBox is a rectangular latitude/longitude window approximating a
// country. It is a pre-filter, not a polygon test; points near borders may be
// misjudged.
type BoundingBox struct {
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat" json:"max_lat"`
	MinLon float64 `yaml:"min_lon" mapstructure:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" mapstructure:"max_lon" json:"max_lon"`
}

// Bounds returns the box as go-geom bounds in XY (lon, lat) order.
func (b BoundingBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Contains reports whether (lat, lon) lies inside the box. Edges are inside.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Validate checks the box is well-formed.
func (b BoundingBox) Validate() error {
	switch {
	case b.MinLat > b.MaxLat:
		return eris.Errorf("rules: bounding box min_lat %v > max_lat %v", b.MinLat, b.MaxLat)
	case b.MinLon > b.MaxLon:
		return eris.Errorf("rules: bounding box min_lon %v > max_lon %v", b.MinLon, b.MaxLon)
	case b.MinLat < -90 || b.MaxLat > 90:
		return eris.New("rules: bounding box latitude outside [-90,90]")
	case b.MinLon < -180 || b.MaxLon > 180:
		return eris.New("rules: bounding box longitude outside [-180,180]")
	}
	return nil
}
