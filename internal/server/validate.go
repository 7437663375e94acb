package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/batch"
	"github.com/sells-group/dq-cli/internal/store"
	"github.com/sells-group/dq-cli/internal/tabular"
)

type validateResponse struct {
	RunID string `json:"run_id,omitempty"`
	*batch.Result
}

// handleValidate runs the batch pass over an uploaded CSV or XLSX file.
//
// Query parameters: limit, concurrency, geocode, reverse, and format
// (json, csv or xlsx; default json).
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.validateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if err := table.RequireColumns(tabular.ValidationColumns...); err != nil {
		var missing *tabular.MissingColumnError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":           err.Error(),
				"missing_columns": missing.Columns,
			})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if (opts.Geocode || opts.Reverse) && s.client == nil {
		opts.Geocode, opts.Reverse = false, false
	}

	ctx := r.Context()
	runID := s.startRun(ctx, name, len(table.Records))

	var procOpts []batch.Option
	procOpts = append(procOpts, batch.WithRules(s.rules), batch.WithOptions(opts))
	if s.client != nil {
		procOpts = append(procOpts, batch.WithClient(s.client))
	}
	res, err := batch.New(procOpts...).Process(ctx, table.Records)
	s.finishRun(runID, res, err)
	if err != nil {
		zap.L().Warn("server: validation interrupted", zap.String("source", name), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "validation interrupted: "+err.Error())
		return
	}

	if runID != "" {
		w.Header().Set("X-Run-ID", runID)
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	switch format {
	case tabular.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+base+`_validated.csv"`)
		if err := tabular.WriteCSV(w, table.Columns, res.Records); err != nil {
			zap.L().Error("server: write csv", zap.Error(err))
		}
	case tabular.FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+base+`_validated.xlsx"`)
		if err := tabular.WriteXLSX(w, table.Columns, res.Records); err != nil {
			zap.L().Error("server: write xlsx", zap.Error(err))
		}
	default:
		writeJSON(w, http.StatusOK, validateResponse{RunID: runID, Result: res})
	}
}

func (s *Server) validateParams(r *http.Request) (batch.Options, tabular.Format, error) {
	opts := s.opts
	var err error
	if opts.Limit, err = intParam(r, "limit", opts.Limit); err != nil {
		return opts, "", err
	}
	if opts.Concurrency, err = intParam(r, "concurrency", opts.Concurrency); err != nil {
		return opts, "", err
	}
	if opts.Geocode, err = boolParam(r, "geocode", opts.Geocode); err != nil {
		return opts, "", err
	}
	if opts.Reverse, err = boolParam(r, "reverse", opts.Reverse); err != nil {
		return opts, "", err
	}

	format := tabular.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		if format, err = tabular.ParseFormat(raw); err != nil {
			return opts, "", err
		}
	}
	return opts, format, nil
}

func (s *Server) startRun(ctx context.Context, source string, rows int) string {
	if s.store == nil {
		return ""
	}
	run, err := s.store.CreateRun(ctx, source, rows)
	if err != nil {
		zap.L().Warn("server: record run", zap.Error(err))
		return ""
	}
	return run.ID
}

func (s *Server) finishRun(runID string, res *batch.Result, procErr error) {
	if s.store == nil || runID == "" {
		return
	}
	outcome := store.RunOutcome{Status: res.RunStatus(procErr)}
	if res != nil {
		outcome.Processed = res.Processed
		summary := res.Summary
		outcome.Summary = &summary
	}
	if procErr != nil {
		outcome.Error = procErr.Error()
	}
	// The request context may already be cancelled.
	if err := s.store.FinishRun(context.Background(), runID, outcome); err != nil {
		zap.L().Warn("server: finish run", zap.String("run_id", runID), zap.Error(err))
	}
}
