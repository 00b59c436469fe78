package dbus

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/model"
)

func newBridge(t *testing.T) (*FreedesktopBridge, *freedesktopObject, *fakeService) {
	t.Helper()
	svc := newFakeService()
	b := NewFreedesktopBridge(svc, nil)
	return b, &freedesktopObject{b: b}, svc
}

func TestBridge_NotifyMapsToToast(t *testing.T) {
	_, obj, svc := newBridge(t)

	id, dbusErr := obj.Notify("mail", 0, "", "New mail", "from bob", nil,
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))}, 3000)
	require.Nil(t, dbusErr)
	assert.Equal(t, uint32(1), id)

	require.Len(t, svc.toasts, 1)
	got := svc.toasts[0]
	assert.Equal(t, "New mail", got.Title)
	assert.Equal(t, "from bob", got.Description)
	assert.Equal(t, model.VariantDestructive, got.Variant)
	assert.Equal(t, 3000, got.Duration)
}

func TestBridge_ReplacesID(t *testing.T) {
	_, obj, svc := newBridge(t)

	id, _ := obj.Notify("app", 0, "", "50%", "", nil, nil, -1)
	replaced, dbusErr := obj.Notify("app", id, "", "100%", "", nil, nil, -1)
	require.Nil(t, dbusErr)

	assert.Equal(t, id, replaced)
	assert.Equal(t, []string{"show", "update:1"}, svc.calls)
	assert.Equal(t, model.Ptr("100%"), svc.patches["1"].Title)
	assert.True(t, svc.patches["1"].ClearAction, "a replacement without actions drops the old action")

	// An unknown replaces_id creates a fresh toast.
	fresh, _ := obj.Notify("app", 77, "", "again", "", nil, nil, -1)
	assert.Equal(t, uint32(2), fresh)
}

func TestBridge_CloseNotification(t *testing.T) {
	_, obj, svc := newBridge(t)
	id, _ := obj.Notify("app", 0, "", "x", "", nil, nil, -1)

	require.Nil(t, obj.CloseNotification(id))
	require.Nil(t, obj.CloseNotification(999))
	assert.Equal(t, []string{"show", "dismiss:1"}, svc.calls)
}

func TestBridge_ObserveStateForgetsClosed(t *testing.T) {
	b, obj, _ := newBridge(t)

	first, _ := obj.Notify("app", 0, "", "one", "", nil, nil, 1000)
	_, _ = obj.Notify("app", 0, "", "two", "", nil, nil, 0)

	b.ObserveState([]model.Toast{{ID: "2"}, {ID: "1", Duration: 1000}})
	b.ObserveState([]model.Toast{{ID: "2"}})

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.NotContains(t, b.toQueue, first)
	assert.NotContains(t, b.fromQueue, "1")
	assert.NotContains(t, b.seen, "1")
	assert.Contains(t, b.fromQueue, "2")
}

func TestBridge_CloseReason(t *testing.T) {
	b, _, _ := newBridge(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return start.Add(2 * time.Second) }

	b.seen["expired"] = model.Toast{Duration: 1000, CreatedAt: start}
	b.seen["early"] = model.Toast{Duration: 5000, CreatedAt: start}
	b.seen["persistent"] = model.Toast{Duration: 0, CreatedAt: start}
	b.seen["closed"] = model.Toast{Duration: 1000, CreatedAt: start}
	b.requested["closed"] = true

	assert.Equal(t, CloseReasonExpired, b.closeReason("expired"))
	assert.Equal(t, CloseReasonDismissed, b.closeReason("early"))
	assert.Equal(t, CloseReasonDismissed, b.closeReason("persistent"))
	assert.Equal(t, CloseReasonClosed, b.closeReason("closed"))
	assert.Equal(t, CloseReasonDismissed, b.closeReason("never-seen"))
}

func TestBridge_RemovedBeforeSeen(t *testing.T) {
	b, obj, _ := newBridge(t)

	// The queue broadcasts the new toast before Notify registers its id,
	// so the first state the bridge can match is the one without it.
	id, dbusErr := obj.Notify("app", 0, "", "hello", "body", nil, nil, -1)
	require.Nil(t, dbusErr)

	b.mu.Lock()
	assert.Equal(t, CloseReasonDismissed, b.closeReason("1"))
	b.mu.Unlock()

	b.ObserveState(nil)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.NotContains(t, b.toQueue, id)
	assert.NotContains(t, b.fromQueue, "1")
}

func TestBridge_Capabilities(t *testing.T) {
	_, obj, _ := newBridge(t)
	caps, dbusErr := obj.GetCapabilities()
	require.Nil(t, dbusErr)
	assert.Contains(t, caps, "body")

	name, _, _, spec, dbusErr := obj.GetServerInformation()
	require.Nil(t, dbusErr)
	assert.Equal(t, "toastd", name)
	assert.Equal(t, "1.2", spec)
}
