package schedule

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by a virtual clock. Nothing runs until
// Advance is called, and callbacks run on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	m    *Manual
	due  time.Time
	seq  uint64
	fn   func()
	done bool
}

// NewManual creates a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Schedule implements Scheduler.
func (m *Manual) Schedule(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{m: m, due: m.now.Add(d), seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks run in due-time order, ties in the order they were scheduled. Tasks
// scheduled by a running callback also run if they fall due within the
// window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		m.mu.Unlock()

		next.fn()
	}
}

// popDue removes and returns the earliest pending task due at or before
// target. The caller must hold m.mu.
func (m *Manual) popDue(target time.Time) *manualTask {
	idx := -1
	for i, t := range m.tasks {
		if t.due.After(target) {
			continue
		}
		if idx < 0 || t.due.Before(m.tasks[idx].due) ||
			(t.due.Equal(m.tasks[idx].due) && t.seq < m.tasks[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	t := m.tasks[idx]
	t.done = true
	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	return t
}

// Pending returns the number of tasks that have neither run nor been
// cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (t *manualTask) Cancel() bool {
	m := t.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	for i, other := range m.tasks {
		if other == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	return true
}
