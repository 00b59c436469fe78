package toast

import "github.com/jmylchreest/toastq/internal/model"

// EventKind names a lifecycle transition.
type EventKind string

// Lifecycle transitions reported to the event hook.
const (
	EventEnqueued  EventKind = "enqueued"
	EventEvicted   EventKind = "evicted"
	EventDismissed EventKind = "dismissed"
	EventRemoved   EventKind = "removed"
	EventUpdated   EventKind = "updated"
)

// EventKinds returns every kind, in lifecycle order.
func EventKinds() []EventKind {
	return []EventKind{EventEnqueued, EventEvicted, EventDismissed, EventRemoved, EventUpdated}
}

// Event describes a single transition of one toast.
type Event struct {
	Kind    EventKind
	ID      string
	Variant model.Variant
}
