package server

import (
	"net/http"
	"strings"

	"github.com/sells-group/dq-cli/internal/audit"
	"github.com/sells-group/dq-cli/internal/model"
)

type auditResponse struct {
	Source       string             `json:"source"`
	Completeness audit.Report       `json:"completeness"`
	Policies     *audit.PolicyStats `json:"policies,omitempty"`
}

// handleAudit reports field completeness and, when the file has a Unique ID
// column, the policy count. The fields query parameter is a comma-separated
// list overriding the default audited fields.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	fields := model.AuditedFields
	if raw := r.URL.Query().Get("fields"); raw != "" {
		fields = nil
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	table, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	resp := auditResponse{
		Source:       name,
		Completeness: audit.Completeness(table.Records, table.Columns, fields),
	}
	if table.HasColumn(model.ColumnID) {
		stats, err := audit.PolicyCount(table)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp.Policies = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}
