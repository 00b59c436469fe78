package toast

import "github.com/jmylchreest/toastq/internal/model"

// Handle refers to one enqueued toast. Its methods are no-ops once the toast
// has been removed.
type Handle struct {
	ID string
	q  *Queue
}

// Update merges patch into the toast.
func (h *Handle) Update(patch model.Patch) {
	h.q.Update(h.ID, patch)
}

// Dismiss closes the toast.
func (h *Handle) Dismiss() {
	h.q.Dismiss(h.ID)
}

// Success enqueues spec as a success toast.
func (q *Queue) Success(spec model.Spec) *Handle {
	return q.Enqueue(spec.WithVariant(model.VariantSuccess))
}

// Destructive enqueues spec as a destructive (error) toast.
func (q *Queue) Destructive(spec model.Spec) *Handle {
	return q.Enqueue(spec.WithVariant(model.VariantDestructive))
}

// Warning enqueues spec as a warning toast.
func (q *Queue) Warning(spec model.Spec) *Handle {
	return q.Enqueue(spec.WithVariant(model.VariantWarning))
}

// Info enqueues spec as an info toast.
func (q *Queue) Info(spec model.Spec) *Handle {
	return q.Enqueue(spec.WithVariant(model.VariantInfo))
}
