package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/UnknownOlympus/geoplot/internal/pipeline"
	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/UnknownOlympus/geoplot/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeJSON(w, r, statusFor(err), errorResponse{Error: pipeline.UserMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrDecode),
		errors.Is(err, pipeline.ErrSchema),
		errors.Is(err, pipeline.ErrEmptyResult):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrRunInProgress),
		errors.Is(err, session.ErrNoUpload),
		errors.Is(err, session.ErrNotGeocoded):
		return http.StatusConflict
	case errors.Is(err, geocoding.ErrAPIKeyRequired), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
