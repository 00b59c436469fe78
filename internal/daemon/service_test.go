package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/loop"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/schedule"
	"github.com/jmylchreest/toastq/internal/toast"
)

type harness struct {
	svc   *Service
	loop  *loop.Loop
	sched *schedule.Manual
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := loop.New(64)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	sched := schedule.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	q := toast.New(sched)
	return &harness{svc: NewService(l, q, nil), loop: l, sched: sched}
}

// advance moves the manual clock on the loop goroutine, where the queue lives.
func (h *harness) advance(t *testing.T, d time.Duration) {
	t.Helper()
	require.NoError(t, h.loop.Call(context.Background(), func() { h.sched.Advance(d) }))
}

func TestService_ShowAndSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.svc.Show(ctx, model.Spec{Title: "hello", Variant: model.VariantSuccess})
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	snap, err := h.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "hello", snap[0].Title)
	assert.Equal(t, model.VariantSuccess, snap[0].Variant)
}

func TestService_ShowRejectsInvalidVariant(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Show(context.Background(), model.Spec{Variant: "loud"})
	assert.ErrorIs(t, err, model.ErrInvalidVariant)

	snap, err := h.svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestService_DismissRemoveUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.svc.Show(ctx, model.Spec{Title: "a"})
	require.NoError(t, err)
	b, err := h.svc.Show(ctx, model.Spec{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Update(ctx, a, model.Patch{Title: model.Ptr("A")}))
	assert.ErrorIs(t, h.svc.Update(ctx, a, model.Patch{Variant: model.Ptr(model.Variant("x"))}), model.ErrInvalidVariant)

	require.NoError(t, h.svc.Dismiss(ctx, b))
	require.NoError(t, h.svc.Dismiss(ctx, "404"))

	snap, err := h.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.False(t, snap[0].Open)
	assert.Equal(t, "A", snap[1].Title)

	h.advance(t, 300*time.Millisecond)
	snap, _ = h.svc.Snapshot(ctx)
	assert.Len(t, snap, 1)

	require.NoError(t, h.svc.Remove(ctx, a))
	snap, _ = h.svc.Snapshot(ctx)
	assert.Empty(t, snap)
}

func TestService_AllOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for range 3 {
		_, err := h.svc.Show(ctx, model.Spec{})
		require.NoError(t, err)
	}

	require.NoError(t, h.svc.DismissAll(ctx))
	snap, _ := h.svc.Snapshot(ctx)
	for _, tt := range snap {
		assert.False(t, tt.Open)
	}

	require.NoError(t, h.svc.RemoveAll(ctx))
	snap, _ = h.svc.Snapshot(ctx)
	assert.Empty(t, snap)
}

func TestService_Subscribe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Show(ctx, model.Spec{Title: "before"})
	require.NoError(t, err)

	states := make(chan []model.Toast, 8)
	unsubscribe, err := h.svc.Subscribe(ctx, func(toasts []model.Toast) { states <- toasts })
	require.NoError(t, err)

	initial := <-states
	require.Len(t, initial, 1)
	assert.Equal(t, "before", initial[0].Title)

	_, err = h.svc.Show(ctx, model.Spec{Title: "after"})
	require.NoError(t, err)
	next := <-states
	assert.Len(t, next, 2)

	unsubscribe()
	_, err = h.svc.Show(ctx, model.Spec{Title: "unseen"})
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestService_ClosedLoop(t *testing.T) {
	l := loop.New(1)
	l.Close()
	svc := NewService(l, toast.New(schedule.NewManual(time.Now())), nil)

	_, err := svc.Show(context.Background(), model.Spec{})
	assert.ErrorIs(t, err, loop.ErrClosed)
	assert.ErrorIs(t, svc.Dismiss(context.Background(), "1"), loop.ErrClosed)
	_, err = svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, loop.ErrClosed)
}
