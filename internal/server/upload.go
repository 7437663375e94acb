package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dq-cli/internal/tabular"
)

// readUpload parses the multipart "file" field into a table.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*tabular.Table, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(s.maxUpload, 10)+" bytes")
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return nil, "", false
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "read upload").Error())
		return nil, "", false
	}

	table, err := tabular.ReadBytes(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, "", false
	}
	return table, header.Filename, true
}

// intParam reads a non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// boolParam reads a boolean query parameter.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, eris.Errorf("%s must be true or false", name)
	}
	return b, nil
}
