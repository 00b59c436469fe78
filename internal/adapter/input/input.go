// Package input reads toast requests from external sources.
package input

import (
	"context"
	"strconv"

	"github.com/jmylchreest/toastq/internal/model"
)

// Adapter produces toast requests from a source.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "stdin").
	Name() string

	// Import reads every request the source holds.
	Import(ctx context.Context) ([]model.Spec, error)
}

// NewAdapter creates an Adapter for the named source.
func NewAdapter(source string) (Adapter, error) {
	switch source {
	case "stdin", "-", "":
		return NewStdinAdapter(), nil
	default:
		return nil, &AdapterError{
			Source:  source,
			Message: "unknown input source",
		}
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Line    int // 1-based line for line-oriented input, 0 otherwise
	Err     error
}

func (e *AdapterError) Error() string {
	msg := e.Source + ": " + e.Message
	if e.Line > 0 {
		msg = e.Source + ": line " + strconv.Itoa(e.Line) + ": " + e.Message
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
