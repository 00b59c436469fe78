package dbus

import (
	"context"
	"strconv"
	"sync"

	"github.com/jmylchreest/toastq/internal/model"
)

// fakeService records calls and keeps a trivial toast list.
type fakeService struct {
	mu      sync.Mutex
	next    int
	toasts  []model.Toast
	calls   []string
	patches map[string]model.Patch
	err     error
}

func newFakeService() *fakeService {
	return &fakeService{patches: make(map[string]model.Patch)}
}

func (f *fakeService) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeService) Show(_ context.Context, spec model.Spec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("show")
	if f.err != nil {
		return "", f.err
	}
	f.next++
	id := strconv.Itoa(f.next)
	duration := model.DefaultDuration
	if spec.Duration != nil {
		duration = *spec.Duration
	}
	f.toasts = append([]model.Toast{{
		ID:          id,
		Title:       spec.Title,
		Description: spec.Description,
		Variant:     spec.Variant.Normalize(),
		Open:        true,
		Duration:    duration,
		Action:      spec.Action,
	}}, f.toasts...)
	return id, nil
}

func (f *fakeService) Dismiss(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("dismiss:" + id)
	return f.err
}

func (f *fakeService) DismissAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("dismiss-all")
	return f.err
}

func (f *fakeService) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove:" + id)
	return f.err
}

func (f *fakeService) RemoveAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove-all")
	return f.err
}

func (f *fakeService) Update(_ context.Context, id string, patch model.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update:" + id)
	f.patches[id] = patch
	return f.err
}

func (f *fakeService) Snapshot(context.Context) ([]model.Toast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("snapshot")
	return append([]model.Toast(nil), f.toasts...), f.err
}
