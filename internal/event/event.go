// Package event decodes host-level events that request toasts.
//
// An event is a JSON envelope naming the event and carrying its payload:
//
//	{"event": "show-toast", "payload": {"title": "Saved", "variant": "success"}}
//
// Envelopes arrive over HTTP, the WebSocket stream and stdin.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmylchreest/toastq/internal/model"
)

// ShowToast is the only event understood today.
const ShowToast = "show-toast"

var (
	// ErrUnknownEvent is returned for envelopes naming an unsupported event.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload is returned when the payload does not decode.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope is the wire form of an event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Shower enqueues toasts. It is satisfied by daemon.Service.
type Shower interface {
	Show(ctx context.Context, spec model.Spec) (string, error)
}

// Decode parses an envelope and returns the toast it requests.
func Decode(data []byte) (model.Spec, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Spec{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return env.Spec()
}

// Spec returns the toast requested by the envelope.
func (e Envelope) Spec() (model.Spec, error) {
	if e.Event != ShowToast {
		return model.Spec{}, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}

	var spec model.Spec
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &spec); err != nil {
			return model.Spec{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	if err := spec.Validate(); err != nil {
		return model.Spec{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return spec, nil
}

// New builds a show-toast envelope for spec.
func New(spec model.Spec) (Envelope, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: ShowToast, Payload: payload}, nil
}

// Dispatch decodes data and enqueues the requested toast.
func Dispatch(ctx context.Context, s Shower, data []byte) (string, error) {
	spec, err := Decode(data)
	if err != nil {
		return "", err
	}
	return s.Show(ctx, spec)
}
