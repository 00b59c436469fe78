// Package toast implements the toast queue: a bounded, newest-first list of
// active toasts with timed auto-dismiss, delayed removal after dismissal and
// synchronous broadcast of the full state to subscribers.
//
// A Queue is not safe for concurrent use. Every method, every listener and
// every scheduled callback must run on one goroutine; the daemon achieves
// this by hosting the queue on a loop.Loop and dispatching timers onto it.
package toast

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/schedule"
)

// Limits bounds the queue.
type Limits struct {
	Capacity        int           // Maximum toasts held; the oldest is evicted beyond this
	DefaultDuration time.Duration // Display time when a Spec leaves Duration unset
	RemoveDelay     time.Duration // Time between dismissal and removal
}

// DefaultLimits returns the standard limits: three toasts, five seconds on
// screen and 300ms to animate out.
func DefaultLimits() Limits {
	return Limits{
		Capacity:        3,
		DefaultDuration: model.DefaultDuration * time.Millisecond,
		RemoveDelay:     300 * time.Millisecond,
	}
}

// Listener receives the full ordered state after every change. The slice is
// a copy owned by the listener.
type Listener func(toasts []model.Toast)

// Option configures a Queue.
type Option func(*Queue)

// WithLimits overrides the default limits. Non-positive capacity keeps the
// default; negative delays are treated as zero.
func WithLimits(l Limits) Option {
	return func(q *Queue) {
		if l.Capacity > 0 {
			q.limits.Capacity = l.Capacity
		}
		q.limits.DefaultDuration = max(l.DefaultDuration, 0)
		q.limits.RemoveDelay = max(l.RemoveDelay, 0)
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithEventHook registers a function called for every lifecycle transition.
// The hook runs before listeners are notified of the same change.
func WithEventHook(hook func(Event)) Option {
	return func(q *Queue) {
		q.hook = hook
	}
}

// Queue holds the active toasts.
type Queue struct {
	sched  schedule.Scheduler
	limits Limits
	logger *slog.Logger
	hook   func(Event)

	toasts []model.Toast // newest first
	lastID uint64

	dismissTimers map[string]schedule.Task // auto-dismiss, per open toast
	removeTimers  map[string]schedule.Task // pending removal, per dismissed toast

	subs []*subscription // replaced, never mutated in place
}

type subscription struct {
	fn Listener
}

// New creates an empty queue using sched for all timers.
func New(sched schedule.Scheduler, opts ...Option) *Queue {
	q := &Queue{
		sched:         sched,
		limits:        DefaultLimits(),
		logger:        slog.Default(),
		dismissTimers: make(map[string]schedule.Task),
		removeTimers:  make(map[string]schedule.Task),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Limits returns the limits in effect.
func (q *Queue) Limits() Limits {
	return q.limits
}

// Enqueue adds a toast at the head of the queue and returns its handle.
// When the queue is over capacity the oldest toasts are evicted.
func (q *Queue) Enqueue(spec model.Spec) *Handle {
	id := q.nextID()

	duration := int(q.limits.DefaultDuration / time.Millisecond)
	if spec.Duration != nil {
		duration = *spec.Duration
	}

	t := model.Toast{
		ID:          id,
		Title:       spec.Title,
		Description: spec.Description,
		Variant:     spec.Variant.Normalize(),
		Open:        true,
		Duration:    duration,
		CreatedAt:   q.sched.Now(),
	}
	if spec.Action != nil {
		a := *spec.Action
		t.Action = &a
	}

	next := make([]model.Toast, 0, min(len(q.toasts)+1, q.limits.Capacity))
	next = append(next, t)
	var evicted []model.Toast
	for _, old := range q.toasts {
		if len(next) < q.limits.Capacity {
			next = append(next, old)
		} else {
			evicted = append(evicted, old)
		}
	}
	q.toasts = next

	q.emit(Event{Kind: EventEnqueued, ID: id, Variant: t.Variant})
	for _, old := range evicted {
		q.cancelTimers(old.ID)
		q.emit(Event{Kind: EventEvicted, ID: old.ID, Variant: old.Variant})
	}

	if duration > 0 {
		q.dismissTimers[id] = q.sched.Schedule(t.DurationTime(), func() {
			delete(q.dismissTimers, id)
			q.Dismiss(id)
		})
	}

	q.logger.Debug("toast enqueued", "id", id, "variant", t.Variant, "duration_ms", duration, "evicted", len(evicted))
	q.broadcast()

	return &Handle{ID: id, q: q}
}

// Dismiss closes the toast with the given id and schedules its removal.
// Dismissing an already closed toast restarts its removal delay. Unknown ids
// are ignored.
func (q *Queue) Dismiss(id string) {
	i := q.indexOf(id)
	if i < 0 {
		return
	}
	if q.dismiss(i) {
		q.broadcast()
	}
}

// DismissAll closes every toast and schedules their removal.
func (q *Queue) DismissAll() {
	changed := false
	for i := range q.toasts {
		if q.dismiss(i) {
			changed = true
		}
	}
	if changed {
		q.broadcast()
	}
}

// dismiss closes the toast at index i and (re)schedules its removal. It
// reports whether the visible state changed.
func (q *Queue) dismiss(i int) bool {
	t := &q.toasts[i]
	id := t.ID

	if task, ok := q.dismissTimers[id]; ok {
		task.Cancel()
		delete(q.dismissTimers, id)
	}
	q.scheduleRemoval(id)

	if !t.Open {
		return false
	}
	t.Open = false
	q.emit(Event{Kind: EventDismissed, ID: id, Variant: t.Variant})
	q.logger.Debug("toast dismissed", "id", id)
	return true
}

// scheduleRemoval replaces any pending removal for id.
func (q *Queue) scheduleRemoval(id string) {
	if prev, ok := q.removeTimers[id]; ok {
		prev.Cancel()
	}
	q.removeTimers[id] = q.sched.Schedule(q.limits.RemoveDelay, func() {
		delete(q.removeTimers, id)
		q.Remove(id)
	})
}

// Remove deletes the toast with the given id outright and cancels its
// timers. Unknown ids are ignored.
func (q *Queue) Remove(id string) {
	i := q.indexOf(id)
	if i < 0 {
		return
	}
	t := q.toasts[i]
	q.cancelTimers(id)

	next := make([]model.Toast, 0, len(q.toasts)-1)
	next = append(next, q.toasts[:i]...)
	next = append(next, q.toasts[i+1:]...)
	q.toasts = next

	q.emit(Event{Kind: EventRemoved, ID: id, Variant: t.Variant})
	q.logger.Debug("toast removed", "id", id)
	q.broadcast()
}

// RemoveAll clears the queue and cancels every timer.
func (q *Queue) RemoveAll() {
	if len(q.toasts) == 0 {
		return
	}
	removed := q.toasts
	q.toasts = nil
	for _, t := range removed {
		q.cancelTimers(t.ID)
		q.emit(Event{Kind: EventRemoved, ID: t.ID, Variant: t.Variant})
	}
	q.logger.Debug("all toasts removed", "count", len(removed))
	q.broadcast()
}

// Update merges patch into the toast with the given id. Only the fields set
// in patch change; a new duration does not restart the auto-dismiss timer.
// Unknown ids and patches that change nothing are ignored.
func (q *Queue) Update(id string, patch model.Patch) {
	i := q.indexOf(id)
	if i < 0 {
		return
	}
	t := &q.toasts[i]
	if !patch.Apply(t) {
		return
	}
	q.emit(Event{Kind: EventUpdated, ID: id, Variant: t.Variant})
	q.logger.Debug("toast updated", "id", id)
	q.broadcast()
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners are called in registration order. A listener removed while a
// broadcast is in progress still receives that broadcast. The returned
// function may be called more than once.
func (q *Queue) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	next := make([]*subscription, 0, len(q.subs)+1)
	next = append(next, q.subs...)
	q.subs = append(next, sub)

	return func() {
		for i, s := range q.subs {
			if s == sub {
				next := make([]*subscription, 0, len(q.subs)-1)
				next = append(next, q.subs[:i]...)
				q.subs = append(next, q.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of the active toasts, newest first.
func (q *Queue) Snapshot() []model.Toast {
	out := make([]model.Toast, len(q.toasts))
	for i := range q.toasts {
		out[i] = q.toasts[i].Clone()
	}
	return out
}

// Len returns the number of active toasts, open or closed.
func (q *Queue) Len() int {
	return len(q.toasts)
}

// broadcast delivers the current state to every listener registered when it
// started. Each listener gets a fresh snapshot, so a listener that mutates
// the queue never causes later listeners to see stale state.
func (q *Queue) broadcast() {
	subs := q.subs
	for _, s := range subs {
		s.fn(q.Snapshot())
	}
}

func (q *Queue) emit(e Event) {
	if q.hook != nil {
		q.hook(e)
	}
}

func (q *Queue) nextID() string {
	q.lastID++
	if q.lastID == 0 {
		q.lastID = 1
	}
	return strconv.FormatUint(q.lastID, 10)
}

func (q *Queue) indexOf(id string) int {
	for i := range q.toasts {
		if q.toasts[i].ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) cancelTimers(id string) {
	if task, ok := q.dismissTimers[id]; ok {
		task.Cancel()
		delete(q.dismissTimers, id)
	}
	if task, ok := q.removeTimers[id]; ok {
		task.Cancel()
		delete(q.removeTimers, id)
	}
}

// pendingTimers reports how many timers are live. Used by tests.
func (q *Queue) pendingTimers() (dismiss, remove int) {
	return len(q.dismissTimers), len(q.removeTimers)
}
