package audit

import (
	"sort"

	"github.com/sells-group/dq-cli/internal/model"
	"github.com/sells-group/dq-cli/internal/tabular"
)

// PolicyStats is the policy count validation. A Unique ID appearing on more
// than one row is reported, not rejected.
type PolicyStats struct {
	Policies        int      `json:"policies"`
	UniqueLocations int      `json:"unique_locations"`
	Duplicates      int      `json:"duplicates"`
	DuplicateIDs    []string `json:"duplicate_ids,omitempty"`
	BlankIDs        int      `json:"blank_ids"`
}

// PolicyCount counts policies and distinct Unique IDs. Blank IDs are not
// locations, so they count towards Duplicates. It needs the Unique ID column.
func PolicyCount(table *tabular.Table) (PolicyStats, error) {
	if err := table.RequireColumns(model.ColumnID); err != nil {
		return PolicyStats{}, err
	}

	seen := make(map[string]int, len(table.Records))
	stats := PolicyStats{Policies: len(table.Records)}
	for _, rec := range table.Records {
		if rec.ID == "" {
			stats.BlankIDs++
			continue
		}
		seen[rec.ID]++
	}

	stats.UniqueLocations = len(seen)
	stats.Duplicates = stats.Policies - stats.UniqueLocations
	for id, n := range seen {
		if n > 1 {
			stats.DuplicateIDs = append(stats.DuplicateIDs, id)
		}
	}
	sort.Strings(stats.DuplicateIDs)
	return stats, nil
}
