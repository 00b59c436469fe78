package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmylchreest/toastq/internal/event"
	"github.com/jmylchreest/toastq/internal/loop"
	"github.com/jmylchreest/toastq/internal/model"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// mapError translates service errors to HTTP status codes.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidVariant),
		errors.Is(err, event.ErrUnknownEvent),
		errors.Is(err, event.ErrInvalidPayload):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, loop.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "daemon shutting down")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type showResponse struct {
	ID string `json:"id"`
}

type healthResponse struct {
	Status string `json:"status"`
	Toasts int    `json:"toasts"`
}
