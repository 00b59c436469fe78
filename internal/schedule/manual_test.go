package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_AdvanceRunsDueTasksInOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string

	m.Schedule(300*time.Millisecond, func() { got = append(got, "c") })
	m.Schedule(100*time.Millisecond, func() { got = append(got, "a") })
	m.Schedule(100*time.Millisecond, func() { got = append(got, "b") })
	m.Schedule(time.Second, func() { got = append(got, "late") })

	m.Advance(299 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, m.Pending())

	m.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, epoch.Add(300*time.Millisecond), m.Now())
	assert.Equal(t, 1, m.Pending())
}

func TestManual_ClockAtCallbackTime(t *testing.T) {
	m := NewManual(epoch)
	var at time.Time
	m.Schedule(50*time.Millisecond, func() { at = m.Now() })

	m.Advance(time.Second)
	assert.Equal(t, epoch.Add(50*time.Millisecond), at)
	assert.Equal(t, epoch.Add(time.Second), m.Now())
}

func TestManual_NestedScheduleWithinWindow(t *testing.T) {
	m := NewManual(epoch)
	var got []string

	m.Schedule(100*time.Millisecond, func() {
		got = append(got, "outer")
		m.Schedule(100*time.Millisecond, func() { got = append(got, "inner") })
		m.Schedule(time.Second, func() { got = append(got, "outside") })
	})

	m.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"outer", "inner"}, got)
	assert.Equal(t, 1, m.Pending())
}

func TestManual_Cancel(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	task := m.Schedule(10*time.Millisecond, func() { ran = true })

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel())
	assert.Equal(t, 0, m.Pending())

	m.Advance(time.Second)
	assert.False(t, ran)
}

func TestManual_CancelAfterRun(t *testing.T) {
	m := NewManual(epoch)
	task := m.Schedule(0, func() {})
	m.Advance(0)
	assert.False(t, task.Cancel())
}

func TestManual_CancelFromCallback(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	var second Task
	m.Schedule(10*time.Millisecond, func() { second.Cancel() })
	second = m.Schedule(20*time.Millisecond, func() { ran = true })

	m.Advance(time.Second)
	assert.False(t, ran)
}

func TestManual_NegativeDelay(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	m.Schedule(-time.Second, func() { ran = true })
	m.Advance(0)
	assert.True(t, ran)
}
