package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastq/internal/model"
)

// Client calls a running toastd over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect returns a client on the shared session bus connection.
func Connect() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient returns a client using conn.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, Path)}
}

// Show raises a toast and returns its id.
func (c *Client) Show(ctx context.Context, spec model.Spec) (string, error) {
	duration := DefaultDuration
	if spec.Duration != nil {
		duration = int32(*spec.Duration)
	}
	var actionKey, actionLabel string
	if spec.Action != nil {
		actionKey, actionLabel = spec.Action.Key, spec.Action.Label
	}

	var id string
	err := c.obj.CallWithContext(ctx, Interface+".ShowToast", 0,
		spec.Title, spec.Description, string(spec.Variant), duration, actionKey, actionLabel,
	).Store(&id)
	if err != nil {
		return "", fmt.Errorf("ShowToast: %w", err)
	}
	return id, nil
}

// Dismiss closes one toast.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	return c.call(ctx, "Dismiss", id)
}

// DismissAll closes every toast.
func (c *Client) DismissAll(ctx context.Context) error {
	return c.call(ctx, "Dismiss", "")
}

// Remove deletes one toast.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.call(ctx, "Remove", id)
}

// RemoveAll clears the queue.
func (c *Client) RemoveAll(ctx context.Context) error {
	return c.call(ctx, "Remove", "")
}

// Update merges patch into one toast.
func (c *Client) Update(ctx context.Context, id string, patch model.Patch) error {
	return c.call(ctx, "Update", id, FieldsFromPatch(patch))
}

// Snapshot returns the current toasts, newest first.
func (c *Client) Snapshot(ctx context.Context) ([]model.Toast, error) {
	var state string
	if err := c.obj.CallWithContext(ctx, Interface+".List", 0).Store(&state); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return DecodeState(state)
}

// Watch delivers the state carried by every StateChanged signal until ctx
// is cancelled. The current state is sent first.
func (c *Client) Watch(ctx context.Context) (<-chan []model.Toast, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalStateChanged),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)

	initial, err := c.Snapshot(ctx)
	if err != nil {
		c.conn.RemoveSignal(signals)
		_ = c.conn.RemoveMatchSignal(opts...)
		return nil, err
	}

	out := make(chan []model.Toast, 1)
	out <- initial

	go func() {
		defer close(out)
		defer func() {
			c.conn.RemoveSignal(signals)
			_ = c.conn.RemoveMatchSignal(opts...)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if sig.Path != Path || sig.Name != Interface+"."+SignalStateChanged || len(sig.Body) != 1 {
					continue
				}
				state, ok := sig.Body[0].(string)
				if !ok {
					continue
				}
				toasts, err := DecodeState(state)
				if err != nil {
					continue
				}
				select {
				case out <- toasts:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) error {
	if call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...); call.Err != nil {
		return fmt.Errorf("%s: %w", method, call.Err)
	}
	return nil
}

// FieldsFromPatch converts a Patch to the Update a{sv} dictionary.
func FieldsFromPatch(p model.Patch) map[string]dbus.Variant {
	fields := make(map[string]dbus.Variant)
	if p.Title != nil {
		fields["title"] = dbus.MakeVariant(*p.Title)
	}
	if p.Description != nil {
		fields["description"] = dbus.MakeVariant(*p.Description)
	}
	if p.Variant != nil {
		fields["variant"] = dbus.MakeVariant(string(*p.Variant))
	}
	if p.Duration != nil {
		fields["duration"] = dbus.MakeVariant(int32(*p.Duration))
	}
	if p.Action != nil {
		fields["action_key"] = dbus.MakeVariant(p.Action.Key)
		fields["action_label"] = dbus.MakeVariant(p.Action.Label)
	}
	if p.ClearAction {
		fields["clear_action"] = dbus.MakeVariant(true)
	}
	return fields
}
