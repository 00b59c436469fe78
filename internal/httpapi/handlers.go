package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/toastq/internal/core"
	"github.com/jmylchreest/toastq/internal/event"
	"github.com/jmylchreest/toastq/internal/model"
)

type handlers struct {
	svc    Service
	logger *slog.Logger
}

// health handles GET /healthz
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	toasts, err := h.svc.Snapshot(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Toasts: len(toasts)})
}

// list handles GET /api/v1/toasts
//
// Optional query parameters: variant, open (bool), filter (expression),
// limit.
func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var opts core.FilterOptions
	if v := q.Get("variant"); v != "" {
		variant, err := model.ParseVariant(v)
		if err != nil {
			mapError(w, err)
			return
		}
		opts.Variant = &variant
	}
	if o := q.Get("open"); o != "" {
		open, err := strconv.ParseBool(o)
		if err != nil {
			respondError(w, http.StatusBadRequest, "open must be a boolean")
			return
		}
		opts.Open = &open
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}
	expr, err := core.ParseFilter(q.Get("filter"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	toasts, err := h.svc.Snapshot(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	toasts = core.FilterWithExpr(toasts, expr, time.Now())
	respondJSON(w, http.StatusOK, core.Filter(toasts, opts))
}

// show handles POST /api/v1/toasts
func (h *handlers) show(w http.ResponseWriter, r *http.Request) {
	var spec model.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.svc.Show(r.Context(), spec)
	if err != nil {
		h.logger.Warn("show toast failed", "request_id", GetRequestID(r.Context()), "error", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, showResponse{ID: id})
}

// update handles PATCH /api/v1/toasts/{id}
func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	var patch model.Patch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dismiss handles POST /api/v1/toasts/{id}/dismiss
func (h *handlers) dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Dismiss(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dismissAll handles POST /api/v1/toasts/dismiss
func (h *handlers) dismissAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DismissAll(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// remove handles DELETE /api/v1/toasts/{id}
func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeAll handles DELETE /api/v1/toasts
func (h *handlers) removeAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveAll(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events handles POST /api/v1/events
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if !json.Valid(data) {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := event.Dispatch(r.Context(), h.svc, data)
	if err != nil {
		h.logger.Debug("event rejected", "request_id", GetRequestID(r.Context()), "error", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, showResponse{ID: id})
}
