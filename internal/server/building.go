package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/building"
)

type buildingRequest struct {
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

// handleBuilding estimates building attributes for one address.
func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	if s.estimator == nil {
		writeError(w, http.StatusServiceUnavailable, "building estimator not configured")
		return
	}

	var req buildingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attrs, err := s.estimator.Estimate(r.Context(), req.Address, req.PostalCode)
	if err != nil {
		var parseErr *building.ParseError
		switch {
		case errors.Is(err, building.ErrMissingInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &parseErr):
			writeJSON(w, http.StatusBadGateway, parseErr)
		default:
			zap.L().Warn("server: building estimate", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, attrs)
}
