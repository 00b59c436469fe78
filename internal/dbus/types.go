package dbus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastq/internal/model"
)

const (
	// Interface is the toastq interface name.
	Interface = "io.github.jmylchreest.Toastq"
	// Path is the toastq object path.
	Path = "/io/github/jmylchreest/Toastq"
	// BusName is the bus name claimed by toastd.
	BusName = "io.github.jmylchreest.Toastq"

	// SignalStateChanged carries the full state as JSON.
	SignalStateChanged = "StateChanged"

	// DefaultDuration asks ShowToast to use the queue's default duration.
	DefaultDuration int32 = -1
)

// D-Bus error names returned by toastd.
const (
	ErrorInvalidArgs = Interface + ".Error.InvalidArgs"
	ErrorFailed      = Interface + ".Error.Failed"
)

// SpecFromArgs builds a Spec from ShowToast arguments. A duration of -1
// selects the queue default; 0 keeps the toast open until dismissed. An
// empty action key means no action.
func SpecFromArgs(title, description, variant string, durationMs int32, actionKey, actionLabel string) (model.Spec, error) {
	v, err := model.ParseVariant(variant)
	if err != nil {
		return model.Spec{}, err
	}

	spec := model.Spec{
		Title:       title,
		Description: description,
		Variant:     v,
	}
	if durationMs != DefaultDuration {
		spec.Duration = model.Ptr(int(durationMs))
	}
	if actionKey != "" {
		spec.Action = &model.Action{Key: actionKey, Label: actionLabel}
	}
	return spec, nil
}

// ErrUnknownField is returned by PatchFromFields for unsupported keys.
var ErrUnknownField = errors.New("unknown field")

// PatchFromFields converts an Update a{sv} dictionary to a Patch. Supported
// keys are title, description and variant (strings), duration (any integer
// type, milliseconds), action_key / action_label (strings) and
// clear_action (boolean).
func PatchFromFields(fields map[string]dbus.Variant) (model.Patch, error) {
	var patch model.Patch
	var action model.Action
	hasAction := false

	for key, value := range fields {
		switch key {
		case "title", "description", "variant", "action_key", "action_label":
			s, ok := value.Value().(string)
			if !ok {
				return model.Patch{}, fmt.Errorf("field %q: expected string, got %s", key, value.Signature())
			}
			switch key {
			case "title":
				patch.Title = model.Ptr(s)
			case "description":
				patch.Description = model.Ptr(s)
			case "variant":
				v, err := model.ParseVariant(s)
				if err != nil {
					return model.Patch{}, err
				}
				patch.Variant = model.Ptr(v)
			case "action_key":
				action.Key = s
				hasAction = true
			case "action_label":
				action.Label = s
				hasAction = true
			}
		case "duration":
			ms, ok := intValue(value)
			if !ok {
				return model.Patch{}, fmt.Errorf("field %q: expected integer, got %s", key, value.Signature())
			}
			patch.Duration = model.Ptr(ms)
		case "clear_action":
			b, ok := value.Value().(bool)
			if !ok {
				return model.Patch{}, fmt.Errorf("field %q: expected boolean, got %s", key, value.Signature())
			}
			patch.ClearAction = b
		default:
			return model.Patch{}, fmt.Errorf("%w %q", ErrUnknownField, key)
		}
	}

	if hasAction {
		patch.Action = &action
	}
	return patch, nil
}

func intValue(v dbus.Variant) (int, bool) {
	switch val := v.Value().(type) {
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case uint32:
		return int(val), true
	case int16:
		return int(val), true
	case uint16:
		return int(val), true
	case byte:
		return int(val), true
	}
	return 0, false
}

// EncodeState renders the queue state as the JSON carried by List and
// StateChanged.
func EncodeState(toasts []model.Toast) (string, error) {
	if toasts == nil {
		toasts = []model.Toast{}
	}
	data, err := json.Marshal(toasts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeState parses the JSON produced by EncodeState.
func DecodeState(state string) ([]model.Toast, error) {
	var toasts []model.Toast
	if err := json.Unmarshal([]byte(state), &toasts); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return toasts, nil
}

// toDBusError maps service errors to D-Bus errors.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name := ErrorFailed
	if errors.Is(err, model.ErrInvalidVariant) || errors.Is(err, ErrUnknownField) {
		name = ErrorInvalidArgs
	}
	return dbus.NewError(name, []any{err.Error()})
}

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved by freedesktop.org.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Urgency levels from the freedesktop hints.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// DBusNotification represents an incoming org.freedesktop.Notifications
// Notify call.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// ParsedActions converts the D-Bus action array to structured form.
// D-Bus actions are passed as alternating key/label pairs.
func (n *DBusNotification) ParsedActions() []model.Action {
	actions := make([]model.Action, 0, len(n.Actions)/2)
	for i := 0; i+1 < len(n.Actions); i += 2 {
		actions = append(actions, model.Action{
			Key:   n.Actions[i],
			Label: n.Actions[i+1],
		})
	}
	return actions
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return UrgencyNormal
}

// Category extracts the category hint from the notification.
func (n *DBusNotification) Category() string {
	if v, ok := n.Hints["category"]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// Variant picks the toast variant for the notification. Critical urgency
// and error categories map to destructive, low urgency to info.
func (n *DBusNotification) Variant() model.Variant {
	switch n.Category() {
	case "transfer.error", "network.error", "device.error", "email.bounced":
		return model.VariantDestructive
	case "transfer.complete":
		return model.VariantSuccess
	}
	switch n.Urgency() {
	case UrgencyCritical:
		return model.VariantDestructive
	case UrgencyLow:
		return model.VariantInfo
	default:
		return model.VariantDefault
	}
}

// ToSpec converts the notification to a toast request. The first action is
// kept; "default" actions are labelled with the summary when unlabeled.
func (n *DBusNotification) ToSpec() model.Spec {
	spec := model.Spec{
		Title:       n.Summary,
		Description: n.Body,
		Variant:     n.Variant(),
	}
	if n.ExpireTimeout >= 0 {
		spec.Duration = model.Ptr(int(n.ExpireTimeout))
	}
	if actions := n.ParsedActions(); len(actions) > 0 {
		a := actions[0]
		if a.Label == "" {
			a.Label = n.Summary
		}
		spec.Action = &a
	}
	return spec
}

// ServerCapabilities lists the capabilities advertised on the freedesktop
// interface.
var ServerCapabilities = []string{
	"actions", // First action is attached to the toast
	"body",    // Body becomes the toast description
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string // "toastd"
	Vendor      string // "toastq"
	Version     string // Build version
	SpecVersion string // "1.2"
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "toastd",
		Vendor:      "toastq",
		Version:     "0.0.1", // Will be replaced by build-time version
		SpecVersion: "1.2",
	}
}
