package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/becayis/chatcore/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response in the backend's
// {"detail": "..."} shape.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{
		"detail": detail,
	})
}

// writeServiceError maps a service error to its status code.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalid):
		status = http.StatusBadRequest
	}
	writeError(w, status, service.Detail(err, fallback))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
