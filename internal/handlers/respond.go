package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/models"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) error {
	return writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

// writeServiceError answers with the status and detail derived from err.
func writeServiceError(w http.ResponseWriter, err error) error {
	return writeDetail(w, common.StatusCode(err), common.Detail(err))
}

// decodeBody reads a JSON request body. An empty body decodes as {}.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return common.NewValidationError("invalid_body", "Invalid JSON body").WithCause(err)
	}
	return nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return false
	}
	return true
}
