package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/model"
)

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestShowAndList(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodPost, "/api/v1/toasts", `{"title":"Saved","variant":"success"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, showResponse{ID: "1"}, decode[showResponse](t, resp))

	resp = h.request(t, http.MethodGet, "/api/v1/toasts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	toasts := decode[[]model.Toast](t, resp)
	require.Len(t, toasts, 1)
	assert.Equal(t, "Saved", toasts[0].Title)
	assert.Equal(t, model.VariantSuccess, toasts[0].Variant)
	assert.True(t, toasts[0].Open)
	assert.Equal(t, model.DefaultDuration, toasts[0].Duration)
}

func TestShow_Errors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{"title":`, http.StatusBadRequest},
		{"wrong type", `{"variant":3}`, http.StatusBadRequest},
		{"invalid variant", `{"variant":"loud"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.request(t, http.MethodPost, "/api/v1/toasts", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}

	snap, err := h.svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestList_Filters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, _ = h.svc.Show(ctx, model.Spec{Title: "a", Variant: model.VariantInfo})
	_, _ = h.svc.Show(ctx, model.Spec{Title: "b", Variant: model.VariantWarning})
	_, _ = h.svc.Show(ctx, model.Spec{Title: "c", Variant: model.VariantInfo})
	require.NoError(t, h.svc.Dismiss(ctx, "3"))

	tests := []struct {
		query  string
		status int
		titles []string
	}{
		{"", http.StatusOK, []string{"c", "b", "a"}},
		{"?variant=info", http.StatusOK, []string{"c", "a"}},
		{"?open=true", http.StatusOK, []string{"b", "a"}},
		{"?variant=info&open=false", http.StatusOK, []string{"c"}},
		{"?limit=1", http.StatusOK, []string{"c"}},
		{"?filter=title~b", http.StatusOK, []string{"b"}},
		{"?variant=loud", http.StatusUnprocessableEntity, nil},
		{"?open=maybe", http.StatusBadRequest, nil},
		{"?limit=-1", http.StatusBadRequest, nil},
		{"?filter=app=x", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := h.request(t, http.MethodGet, "/api/v1/toasts"+tt.query, "")
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}
			titles := []string{}
			for _, toast := range decode[[]model.Toast](t, resp) {
				titles = append(titles, toast.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.svc.Show(ctx, model.Spec{Title: "Uploading", Description: "0%"})
	require.NoError(t, err)

	resp := h.request(t, http.MethodPatch, "/api/v1/toasts/"+id, `{"description":"100%","variant":"success"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	snap, err := h.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "Uploading", snap[0].Title)
	assert.Equal(t, "100%", snap[0].Description)
	assert.Equal(t, model.VariantSuccess, snap[0].Variant)

	resp = h.request(t, http.MethodPatch, "/api/v1/toasts/"+id, `{"open":false}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.request(t, http.MethodPatch, "/api/v1/toasts/"+id, `{"variant":"loud"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.request(t, http.MethodPatch, "/api/v1/toasts/99", `{"title":"ghost"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUpdate_ClearAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.svc.Show(ctx, model.Spec{Title: "Deleted", Action: &model.Action{Key: "undo", Label: "Undo"}})
	require.NoError(t, err)

	resp := h.request(t, http.MethodPatch, "/api/v1/toasts/"+id, `{"clear_action":true,"variant":"warn"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	snap, err := h.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Nil(t, snap[0].Action)
	assert.Equal(t, model.VariantWarning, snap[0].Variant)
}

func TestShow_VariantAlias(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodPost, "/api/v1/toasts", `{"title":"Failed","variant":"error"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	snap, err := h.svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, model.VariantDestructive, snap[0].Variant)
}

func TestDismissThenRemoved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.svc.Show(ctx, model.Spec{Title: "bye", Duration: model.Ptr(0)})
	require.NoError(t, err)

	resp := h.request(t, http.MethodPost, "/api/v1/toasts/"+id+"/dismiss", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	snap, err := h.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.False(t, snap[0].Open)

	h.advance(t, 300*time.Millisecond)
	snap, err = h.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)

	resp = h.request(t, http.MethodPost, "/api/v1/toasts/unknown/dismiss", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDismissAllAndRemove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := h.svc.Show(ctx, model.Spec{Title: title})
		require.NoError(t, err)
	}

	resp := h.request(t, http.MethodDelete, "/api/v1/toasts/2", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	snap, err := h.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 2)

	resp = h.request(t, http.MethodPost, "/api/v1/toasts/dismiss", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	snap, err = h.svc.Snapshot(ctx)
	require.NoError(t, err)
	for _, toast := range snap {
		assert.False(t, toast.Open)
	}

	resp = h.request(t, http.MethodDelete, "/api/v1/toasts", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	snap, err = h.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestEvents(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"show toast", `{"event":"show-toast","payload":{"title":"From host","variant":"info"}}`, http.StatusCreated},
		{"unknown event", `{"event":"explode"}`, http.StatusUnprocessableEntity},
		{"bad variant", `{"event":"show-toast","payload":{"variant":"loud"}}`, http.StatusUnprocessableEntity},
		{"bad payload", `{"event":"show-toast","payload":"nope"}`, http.StatusUnprocessableEntity},
		{"invalid json", `{"event":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.request(t, http.MethodPost, "/api/v1/events", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	snap, err := h.svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "From host", snap[0].Title)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Show(context.Background(), model.Spec{Variant: model.VariantWarning})
	require.NoError(t, err)

	resp := h.request(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, healthResponse{Status: "ok", Toasts: 1}, decode[healthResponse](t, resp))

	resp = h.request(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `toastq_events_total{kind="enqueued",variant="warning"} 1`)
}

func TestRequestID(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodGet, "/healthz", "")
	assert.Len(t, resp.Header.Get(RequestIDHeader), 26, "generated ids are ULIDs")

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "trace-123")
	resp, err = h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/v1/toasts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp2, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestSizeLimit(t *testing.T) {
	h := newHarness(t)
	big := `{"title":"` + strings.Repeat("x", 70<<10) + `"}`

	resp := h.request(t, http.MethodPost, "/api/v1/toasts", big)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
