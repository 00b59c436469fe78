package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/toastq/internal/model"
)

// LookupByID finds a toast by its id. Returns nil if not found.
func LookupByID(toasts []model.Toast, id string) *model.Toast {
	for i := range toasts {
		if toasts[i].ID == id {
			return &toasts[i]
		}
	}
	return nil
}

// LookupByIndex finds a toast by its 1-based position, newest first.
// Returns nil if index is out of bounds.
func LookupByIndex(toasts []model.Toast, index int) *model.Toast {
	idx := index - 1
	if idx < 0 || idx >= len(toasts) {
		return nil
	}
	return &toasts[idx]
}

// Resolve turns a user reference into a toast id. "#N" selects the Nth
// toast from the top; anything else is taken as an id. ok reports whether
// the toast is present. An unknown plain id is still returned so callers can
// pass it on, since the queue ignores ids it does not hold.
func Resolve(toasts []model.Toast, ref string) (id string, ok bool) {
	if rest, found := strings.CutPrefix(ref, "#"); found {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return "", false
		}
		if t := LookupByIndex(toasts, n); t != nil {
			return t.ID, true
		}
		return "", false
	}
	if t := LookupByID(toasts, ref); t != nil {
		return t.ID, true
	}
	return ref, false
}

// Search finds toasts whose title or description contains term.
// Case-insensitive substring match.
func Search(toasts []model.Toast, term string) []model.Toast {
	if term == "" {
		return toasts
	}

	term = strings.ToLower(term)
	var result []model.Toast
	for _, t := range toasts {
		if strings.Contains(strings.ToLower(t.Title), term) ||
			strings.Contains(strings.ToLower(t.Description), term) {
			result = append(result, t)
		}
	}
	return result
}

// CountByVariant returns how many toasts carry each variant.
func CountByVariant(toasts []model.Toast) map[model.Variant]int {
	counts := make(map[model.Variant]int, len(model.Variants()))
	for _, t := range toasts {
		counts[t.Variant]++
	}
	return counts
}
