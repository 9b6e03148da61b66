package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	middleware "github.com/markdave123-py/readaloud/internal/api/middlewares"
	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

type errorBody struct {
	Error string         `json:"error"`
	Type  core.ErrorType `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to its HTTP status. Errors outside the
// taxonomy are logged and reported as 500 without details.
func writeError(w http.ResponseWriter, log *observability.Logger, err error) {
	var de *core.DomainError
	if !errors.As(err, &de) {
		log.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	status := statusFor(de.Type)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("type", string(de.Type)).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: de.Message, Type: de.Type})
}

func statusFor(t core.ErrorType) int {
	switch t {
	case core.ErrorTypeValidation, core.ErrorTypeOutOfRange:
		return http.StatusBadRequest
	case core.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case core.ErrorTypeNotFound:
		return http.StatusNotFound
	case core.ErrorTypeConflict:
		return http.StatusConflict
	case core.ErrorTypeCorruptDocument:
		return http.StatusUnprocessableEntity
	case core.ErrorTypeNarrationFailure, core.ErrorTypeAPI:
		return http.StatusBadGateway
	case core.ErrorTypeConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
	}
	return id, ok
}

// sessionSettings reads voice, binarize and psm from the query or form.
func sessionSettings(r *http.Request) (services.SessionSettings, error) {
	s := services.SessionSettings{Voice: r.FormValue("voice")}
	if v := r.FormValue("binarize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, core.ValidationError("binarize must be true or false", err)
		}
		s.Binarize = &b
	}
	if v := r.FormValue("psm"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, core.ValidationError("psm must be a number", err)
		}
		s.Mode = n
	}
	return s, nil
}
