// Package model defines the core data structures for toastq.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Variant controls how a toast is presented.
type Variant string

// Variants understood by the queue and renderers.
const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
	VariantInfo        Variant = "info"
)

// DefaultDuration is the display time used when a Spec leaves Duration unset.
const DefaultDuration = 5000

// ErrInvalidVariant is returned by ParseVariant for unknown names.
var ErrInvalidVariant = errors.New("variant must be one of default, destructive, success, warning, info")

// Variants returns all variants in presentation order.
func Variants() []Variant {
	return []Variant{VariantDefault, VariantDestructive, VariantSuccess, VariantWarning, VariantInfo}
}

// ParseVariant converts a name to a Variant. The empty string is the default
// variant; "error" is accepted as an alias for destructive.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return VariantDefault, nil
	case "destructive", "error":
		return VariantDestructive, nil
	case "success":
		return VariantSuccess, nil
	case "warning", "warn":
		return VariantWarning, nil
	case "info":
		return VariantInfo, nil
	default:
		return VariantDefault, fmt.Errorf("%w: got %q", ErrInvalidVariant, s)
	}
}

// UnmarshalText accepts the same names as ParseVariant, so JSON and YAML
// requests may use the aliases too. Unknown names are kept as given and
// rejected by Validate.
func (v *Variant) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = ""
		return nil
	}
	if parsed, err := ParseVariant(string(text)); err == nil {
		*v = parsed
		return nil
	}
	*v = Variant(text)
	return nil
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantDefault, VariantDestructive, VariantSuccess, VariantWarning, VariantInfo:
		return true
	}
	return false
}

// Normalize returns v, or VariantDefault when v is unknown or empty.
func (v Variant) Normalize() Variant {
	if v.Valid() {
		return v
	}
	return VariantDefault
}

func (v Variant) String() string {
	return string(v)
}

// Action is an opaque reference attached to a toast. The queue never
// interprets it; renderers show Label and report Key back to the caller.
type Action struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

// Toast is a single user-facing notification tracked by the queue.
type Toast struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Variant     Variant   `json:"variant" yaml:"variant"`
	Open        bool      `json:"open" yaml:"open"`
	Duration    int       `json:"duration" yaml:"duration"` // milliseconds, <= 0 never auto-dismisses
	Action      *Action   `json:"action,omitempty" yaml:"action,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Persistent reports whether the toast stays open until dismissed.
func (t *Toast) Persistent() bool {
	return t.Duration <= 0
}

// DurationTime returns the display duration as a time.Duration.
func (t *Toast) DurationTime() time.Duration {
	return time.Duration(t.Duration) * time.Millisecond
}

// RelativeTime returns a human-readable age such as "3 seconds ago".
func (t *Toast) RelativeTime() string {
	if t.CreatedAt.IsZero() {
		return ""
	}
	return humanize.Time(t.CreatedAt)
}

// Clone creates a copy that shares no pointers with t.
func (t *Toast) Clone() Toast {
	clone := *t
	if t.Action != nil {
		a := *t.Action
		clone.Action = &a
	}
	return clone
}

// Spec is a request to show a toast.
type Spec struct {
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Variant     Variant `json:"variant,omitempty" yaml:"variant,omitempty"`
	// Duration in milliseconds. Nil uses the queue default; zero or negative
	// keeps the toast open until it is dismissed.
	Duration *int    `json:"duration,omitempty" yaml:"duration,omitempty"`
	Action   *Action `json:"action,omitempty" yaml:"action,omitempty"`
}

// Validate checks fields that cannot be normalised silently.
func (s *Spec) Validate() error {
	if s.Variant != "" && !s.Variant.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidVariant, string(s.Variant))
	}
	return nil
}

// WithVariant returns a copy of s with the variant replaced.
func (s Spec) WithVariant(v Variant) Spec {
	s.Variant = v
	return s
}

// Patch is a partial update. Nil fields are left untouched. Visibility is
// not patchable; closing a toast goes through Dismiss. ClearAction removes
// the action; an Action in the same patch replaces it instead.
type Patch struct {
	Title       *string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description *string  `json:"description,omitempty" yaml:"description,omitempty"`
	Variant     *Variant `json:"variant,omitempty" yaml:"variant,omitempty"`
	Duration    *int     `json:"duration,omitempty" yaml:"duration,omitempty"`
	Action      *Action  `json:"action,omitempty" yaml:"action,omitempty"`
	ClearAction bool     `json:"clear_action,omitempty" yaml:"clear_action,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Variant == nil &&
		p.Duration == nil && p.Action == nil && !p.ClearAction
}

// Validate checks the patch variant, if any.
func (p *Patch) Validate() error {
	if p.Variant != nil && !p.Variant.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidVariant, string(*p.Variant))
	}
	return nil
}

// Apply merges the patch into t and reports whether anything changed.
func (p *Patch) Apply(t *Toast) bool {
	changed := false
	if p.Title != nil && *p.Title != t.Title {
		t.Title = *p.Title
		changed = true
	}
	if p.Description != nil && *p.Description != t.Description {
		t.Description = *p.Description
		changed = true
	}
	if p.Variant != nil && p.Variant.Normalize() != t.Variant {
		t.Variant = p.Variant.Normalize()
		changed = true
	}
	if p.Duration != nil && *p.Duration != t.Duration {
		t.Duration = *p.Duration
		changed = true
	}
	switch {
	case p.Action != nil:
		if t.Action == nil || *p.Action != *t.Action {
			a := *p.Action
			t.Action = &a
			changed = true
		}
	case p.ClearAction && t.Action != nil:
		t.Action = nil
		changed = true
	}
	return changed
}

// Ptr returns a pointer to v. It keeps Spec and Patch literals short.
func Ptr[T any](v T) *T {
	return &v
}
