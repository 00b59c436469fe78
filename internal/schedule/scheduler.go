// Package schedule provides cancellable delayed tasks.
//
// Two schedulers are provided: Timer, backed by the runtime timer and
// dispatching callbacks onto a caller-supplied executor, and Manual, a
// virtual clock advanced explicitly by tests.
package schedule

import "time"

// Scheduler runs a function once after a delay.
type Scheduler interface {
	// Schedule arranges for fn to run after d. A non-positive d runs fn at
	// the next opportunity.
	Schedule(d time.Duration, fn func()) Task

	// Now returns the scheduler's current time.
	Now() time.Time
}

// Task is a handle to a scheduled function.
type Task interface {
	// Cancel prevents the task from running. It reports whether the task
	// was still pending; cancelling a task that already ran or was already
	// cancelled returns false.
	Cancel() bool
}
