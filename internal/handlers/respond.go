package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
)

// maxJSONBody caps request bodies; a full visit list is well below this.
const maxJSONBody = 1 << 20

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: status < 400, Message: message})
}

// writeError maps a service error onto its HTTP status and envelope.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, Response{Message: "Invalid input", Details: verr.Fields})
	case errors.Is(err, services.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Please sign in")
	case errors.Is(err, services.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Admin access required")
	case errors.Is(err, services.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrConflict):
		writeMessage(w, http.StatusConflict, "An account with this email already exists")
	case errors.Is(err, services.ErrUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, "This feature is not available right now")
	case errors.Is(err, services.ErrPartialReconcile):
		log.Error("partial reconcile", logger.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Some changes may not have been saved. Please reload and try again.")
	default:
		log.Error("request failed", logger.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return services.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return services.NewValidationError("body", "is required")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return services.NewValidationError(typeErr.Field, "must be a "+typeErr.Type.String())
	case errors.As(err, &maxErr):
		return services.NewValidationError("body", "is too large")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return services.NewValidationError(field, "is not a known field")
	default:
		return services.NewValidationError("body", "is not valid JSON")
	}
}
