package batch

import "github.com/sells-group/dq-cli/internal/model"

// Result is the outcome of Process.
type Result struct {
	// Records holds one enriched record per completed input, in input order.
	Records []model.EnrichedRecord `json:"records"`
	Summary model.Summary          `json:"summary"`
	// Total is the number of records selected after the row limit.
	Total     int  `json:"total"`
	Processed int  `json:"processed"`
	Partial   bool `json:"partial"`

	ProviderCalls int64 `json:"provider_calls"`
	CacheHits     int64 `json:"cache_hits"`
}

// Discrepancies returns the records whose original and geocoded coordinates
// are further apart than the discrepancy threshold.
func (r *Result) Discrepancies() []model.EnrichedRecord {
	var out []model.EnrichedRecord
	for _, rec := range r.Records {
		if rec.LargeCoordinateDiscrepancy {
			out = append(out, rec)
		}
	}
	return out
}

// RunStatus classifies the outcome of Process for run history. err is the
// error Process returned alongside r.
func (r *Result) RunStatus(err error) model.RunStatus {
	switch {
	case r == nil:
		return model.RunStatusFailed
	case r.Partial:
		return model.RunStatusPartial
	case err != nil:
		return model.RunStatusFailed
	default:
		return model.RunStatusComplete
	}
}
