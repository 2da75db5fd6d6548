package shared

import (
	"encoding/json"
	"errors"
	"net/http"
)

// WriteJSON serialises v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a fault to its HTTP status and writes a JSON error body.
// Integrity faults surface as 500s so callers can tell a defect from bad
// input.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case KindOf(err) == KindValidation:
		status = http.StatusUnprocessableEntity
	case KindOf(err) == KindStructural:
		status = http.StatusConflict
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
