// Package loop provides a serial executor.
//
// A Loop runs posted functions one at a time on the goroutine that called
// Run. State that is only touched from inside posted functions needs no
// locking, which is how the toast queue is hosted by the daemon.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("loop closed")

// Loop is a serial executor. The zero value is not usable; use New.
type Loop struct {
	work      chan func()
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a loop whose queue holds up to buffer pending functions.
// Post blocks while the queue is full.
func New(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{
		work: make(chan func(), buffer),
		done: make(chan struct{}),
	}
}

// Run executes posted functions until ctx is cancelled or Close is called.
// The loop is closed when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.work:
			fn()
		}
	}
}

// Post queues fn for execution and returns immediately. It reports false if
// the loop is closed.
func (l *Loop) Post(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case <-l.done:
		return false
	case l.work <- fn:
		return true
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be used
// from inside a function already running on the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// fn may have completed just before the loop stopped.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the loop. Pending functions are discarded. Close is safe to
// call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Done returns a channel closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
