package schedule

import (
	"sync/atomic"
	"time"
)

// Dispatch hands a callback to the goroutine that should run it. It reports
// false if the callback was dropped, e.g. because the executor is closed.
type Dispatch func(fn func()) bool

// Timer schedules tasks on the runtime timer. When the timer fires the
// callback is passed to Dispatch rather than run on the timer goroutine, so
// tasks execute on the same goroutine as the code that scheduled them.
type Timer struct {
	dispatch Dispatch
}

// NewTimer creates a Timer scheduler. A nil dispatch runs callbacks on the
// timer goroutine.
func NewTimer(dispatch Dispatch) *Timer {
	if dispatch == nil {
		dispatch = func(fn func()) bool {
			fn()
			return true
		}
	}
	return &Timer{dispatch: dispatch}
}

const (
	taskPending int32 = iota
	taskFired
	taskCancelled
)

type timerTask struct {
	state atomic.Int32
	timer *time.Timer
}

// Schedule implements Scheduler.
func (s *Timer) Schedule(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}
	t := &timerTask{}
	t.timer = time.AfterFunc(d, func() {
		s.dispatch(func() {
			// Cancel may have won the race while the callback sat in the
			// executor's queue.
			if t.state.CompareAndSwap(taskPending, taskFired) {
				fn()
			}
		})
	})
	return t
}

// Now implements Scheduler.
func (s *Timer) Now() time.Time {
	return time.Now()
}

func (t *timerTask) Cancel() bool {
	if !t.state.CompareAndSwap(taskPending, taskCancelled) {
		return false
	}
	t.timer.Stop()
	return true
}
