package rules

// Coordinates is one source's view of a location. Any field may be nil.
type Coordinates struct {
	Latitude   *float64
	Longitude  *float64
	Confidence *float64
}

func (c Coordinates) point() (Point, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return Point{}, false
	}
	return Point{Lat: *c.Latitude, Lon: *c.Longitude}, true
}

// Reconciliation is the reconciler's recommendation for one record.
type Reconciliation struct {
	UseAPI           bool
	DiffKm           *float64
	LargeDiscrepancy bool
}

// Reconcile decides whether the freshly geocoded coordinates should be
// preferred over the original ones and measures how far apart they are. It
// never modifies either input.
//
// The API pair wins when the original pair is incomplete, or when the API
// reports a confidence and the original either has none or a lower one.
func Reconcile(original, api Coordinates, r Rules) Reconciliation {
	var out Reconciliation

	origPt, origOK := original.point()
	switch {
	case !origOK:
		out.UseAPI = true
	case api.Confidence != nil && (original.Confidence == nil || *api.Confidence > *original.Confidence):
		out.UseAPI = true
	}

	apiPt, apiOK := api.point()
	if origOK && apiOK {
		d := DistanceKm(origPt, apiPt)
		out.DiffKm = &d
		out.LargeDiscrepancy = d > r.DiscrepancyThresholdKm
	}
	return out
}
