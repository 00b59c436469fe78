package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/toastq/internal/model"
)

// Service is the queue surface the bus objects call into.
type Service interface {
	Show(ctx context.Context, spec model.Spec) (string, error)
	Dismiss(ctx context.Context, id string) error
	DismissAll(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	RemoveAll(ctx context.Context) error
	Update(ctx context.Context, id string, patch model.Patch) error
	Snapshot(ctx context.Context) ([]model.Toast, error)
}

// callTimeout bounds each bus method's wait on the queue loop.
const callTimeout = 5 * time.Second

// Server exports the toastq interface on the session bus.
type Server struct {
	svc    Service
	logger *slog.Logger
	info   ServerInfo

	mu      sync.Mutex
	conn    *dbus.Conn
	running bool
}

// NewServer creates a Server backed by svc.
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger, info: DefaultServerInfo()}
}

// SetServerInfo sets the information returned by GetServerInformation.
func (s *Server) SetServerInfo(info ServerInfo) {
	s.info = info
}

// Start connects to the session bus and exports the toastq object.
func (s *Server) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the toastq object on conn and claims BusName.
func (s *Server) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	if err := conn.Export(&toastqObject{s: s}, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: toastqMethods(),
				Signals: toastqSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus toast server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name. The shared session connection stays open.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	_ = s.conn.Export(nil, Path, Interface)
	s.conn = nil

	s.logger.Info("D-Bus toast server stopped")
	return nil
}

// EmitStateChanged broadcasts the queue state. It has the signature of a
// queue listener so the server can subscribe directly.
func (s *Server) EmitStateChanged(toasts []model.Toast) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	state, err := EncodeState(toasts)
	if err != nil {
		s.logger.Warn("failed to encode state", "error", err)
		return
	}
	if err := conn.Emit(Path, Interface+"."+SignalStateChanged, state); err != nil {
		s.logger.Warn("failed to emit StateChanged signal", "error", err)
		return
	}
	s.logger.Debug("emitted StateChanged signal", "toasts", len(toasts))
}

// toastqObject holds the methods exported on the bus, keeping Server's own
// exported methods off the wire.
type toastqObject struct {
	s *Server
}

// ShowToast raises a toast.
// D-Bus method: ShowToast(sssiss) -> s
func (o *toastqObject) ShowToast(title, description, variant string, durationMs int32, actionKey, actionLabel string) (string, *dbus.Error) {
	o.s.logger.Debug("ShowToast called", "title", title, "variant", variant, "duration_ms", durationMs)

	spec, err := SpecFromArgs(title, description, variant, durationMs, actionKey, actionLabel)
	if err != nil {
		return "", toDBusError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	id, err := o.s.svc.Show(ctx, spec)
	if err != nil {
		return "", toDBusError(err)
	}
	return id, nil
}

// Dismiss closes one toast, or all toasts when id is empty.
// D-Bus method: Dismiss(s)
func (o *toastqObject) Dismiss(id string) *dbus.Error {
	o.s.logger.Debug("Dismiss called", "id", id)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if id == "" {
		return toDBusError(o.s.svc.DismissAll(ctx))
	}
	return toDBusError(o.s.svc.Dismiss(ctx, id))
}

// Remove deletes one toast, or all toasts when id is empty.
// D-Bus method: Remove(s)
func (o *toastqObject) Remove(id string) *dbus.Error {
	o.s.logger.Debug("Remove called", "id", id)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if id == "" {
		return toDBusError(o.s.svc.RemoveAll(ctx))
	}
	return toDBusError(o.s.svc.Remove(ctx, id))
}

// Update merges fields into one toast.
// D-Bus method: Update(sa{sv})
func (o *toastqObject) Update(id string, fields map[string]dbus.Variant) *dbus.Error {
	o.s.logger.Debug("Update called", "id", id, "fields", len(fields))

	patch, err := PatchFromFields(fields)
	if err != nil {
		return toDBusError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return toDBusError(o.s.svc.Update(ctx, id, patch))
}

// List returns the current state as JSON.
// D-Bus method: List() -> s
func (o *toastqObject) List() (string, *dbus.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	toasts, err := o.s.svc.Snapshot(ctx)
	if err != nil {
		return "", toDBusError(err)
	}
	state, err := EncodeState(toasts)
	if err != nil {
		return "", toDBusError(err)
	}
	return state, nil
}

// GetServerInformation returns information about the daemon.
// D-Bus method: GetServerInformation() -> (sss)
func (o *toastqObject) GetServerInformation() (string, string, string, *dbus.Error) {
	return o.s.info.Name, o.s.info.Vendor, o.s.info.Version, nil
}

// toastqMethods returns the D-Bus method introspection data.
func toastqMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "ShowToast",
			Args: []introspect.Arg{
				{Name: "title", Type: "s", Direction: "in"},
				{Name: "description", Type: "s", Direction: "in"},
				{Name: "variant", Type: "s", Direction: "in"},
				{Name: "duration_ms", Type: "i", Direction: "in"},
				{Name: "action_key", Type: "s", Direction: "in"},
				{Name: "action_label", Type: "s", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Dismiss",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Remove",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Update",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "in"},
				{Name: "fields", Type: "a{sv}", Direction: "in"},
			},
		},
		{
			Name: "List",
			Args: []introspect.Arg{
				{Name: "state", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
			},
		},
	}
}

// toastqSignals returns the D-Bus signal introspection data.
func toastqSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalStateChanged,
			Args: []introspect.Arg{
				{Name: "state", Type: "s"},
			},
		},
	}
}
