package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/toastq/internal/loop"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/toast"
)

// Service is the goroutine-safe front of a toast queue. Every call is run on
// the loop that owns the queue, so transports can use it from any goroutine.
// Service methods must not be called from a queue listener, which already
// runs on the loop.
type Service struct {
	loop   *loop.Loop
	queue  *toast.Queue
	logger *slog.Logger
}

// NewService wraps q, which must only be touched from l.
func NewService(l *loop.Loop, q *toast.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loop: l, queue: q, logger: logger}
}

// Show validates spec and enqueues it, returning the new toast's id.
func (s *Service) Show(ctx context.Context, spec model.Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	var id string
	if err := s.loop.Call(ctx, func() {
		id = s.queue.Enqueue(spec).ID
	}); err != nil {
		return "", fmt.Errorf("show toast: %w", err)
	}
	return id, nil
}

// Dismiss closes one toast. Unknown ids are ignored.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	return s.run(ctx, "dismiss", func() { s.queue.Dismiss(id) })
}

// DismissAll closes every toast.
func (s *Service) DismissAll(ctx context.Context) error {
	return s.run(ctx, "dismiss all", s.queue.DismissAll)
}

// Remove deletes one toast immediately. Unknown ids are ignored.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.run(ctx, "remove", func() { s.queue.Remove(id) })
}

// RemoveAll clears the queue.
func (s *Service) RemoveAll(ctx context.Context) error {
	return s.run(ctx, "remove all", s.queue.RemoveAll)
}

// Update validates patch and merges it into one toast. Unknown ids are
// ignored.
func (s *Service) Update(ctx context.Context, id string, patch model.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	return s.run(ctx, "update", func() { s.queue.Update(id, patch) })
}

// Snapshot returns the current toasts, newest first.
func (s *Service) Snapshot(ctx context.Context) ([]model.Toast, error) {
	var out []model.Toast
	if err := s.run(ctx, "snapshot", func() { out = s.queue.Snapshot() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe calls fn with the current state and then after every change.
// fn runs on the loop and must not block or call back into the Service.
// The returned function removes the subscription.
func (s *Service) Subscribe(ctx context.Context, fn toast.Listener) (func(), error) {
	var unsubscribe func()
	if err := s.run(ctx, "subscribe", func() {
		fn(s.queue.Snapshot())
		unsubscribe = s.queue.Subscribe(fn)
	}); err != nil {
		return nil, err
	}
	return func() {
		s.loop.Post(unsubscribe)
	}, nil
}

func (s *Service) run(ctx context.Context, op string, fn func()) error {
	if err := s.loop.Call(ctx, fn); err != nil {
		s.logger.Debug("service call failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
