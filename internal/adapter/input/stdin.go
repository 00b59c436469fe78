package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/jmylchreest/toastq/internal/event"
	"github.com/jmylchreest/toastq/internal/model"
)

// StdinAdapter reads toast requests from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads toast requests. Two layouts are accepted:
//
//  1. a JSON array of items, or a single item
//  2. one JSON item per line (blank lines are skipped)
//
// Each item is either a toast spec ({"title": ...}) or an event envelope
// ({"event": "show-toast", "payload": {...}}).
func (a *StdinAdapter) Import(ctx context.Context) ([]model.Spec, error) {
	const maxSize = 10 * 1024 * 1024
	data, err := io.ReadAll(io.LimitReader(a.reader, maxSize+1))
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read stdin", Err: err}
	}
	if len(data) > maxSize {
		return nil, &AdapterError{Source: "stdin", Message: "input exceeds 10MB"}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return parseArray(trimmed)
	}
	if json.Valid(trimmed) {
		// A single, possibly pretty-printed, item.
		spec, err := parseItem(trimmed)
		if err != nil {
			return nil, &AdapterError{Source: "stdin", Message: "invalid item", Err: err}
		}
		return []model.Spec{spec}, nil
	}
	return parseLines(ctx, trimmed)
}

func parseArray(data []byte) ([]model.Spec, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to parse JSON array", Err: err}
	}

	specs := make([]model.Spec, 0, len(items))
	for i, item := range items {
		spec, err := parseItem(item)
		if err != nil {
			return nil, &AdapterError{Source: "stdin", Message: "item " + strconv.Itoa(i+1), Err: err}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseLines(ctx context.Context, data []byte) ([]model.Spec, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), len(data)+1)

	var specs []model.Spec
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		spec, err := parseItem(text)
		if err != nil {
			return nil, &AdapterError{Source: "stdin", Message: "invalid item", Line: line, Err: err}
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read stdin", Err: err}
	}
	return specs, nil
}

// parseItem decodes a spec or an event envelope.
func parseItem(data []byte) (model.Spec, error) {
	var probe struct {
		Event *string `json:"event"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return model.Spec{}, err
	}
	if probe.Event != nil {
		return event.Decode(data)
	}

	var spec model.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return model.Spec{}, err
	}
	if err := spec.Validate(); err != nil {
		return model.Spec{}, err
	}
	return spec, nil
}
