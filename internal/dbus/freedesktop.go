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

const (
	// FreedesktopInterface is the notification interface name.
	FreedesktopInterface = "org.freedesktop.Notifications"
	// FreedesktopPath is the notification object path.
	FreedesktopPath = "/org/freedesktop/Notifications"
	// FreedesktopBusName is the bus name to claim.
	FreedesktopBusName = "org.freedesktop.Notifications"
)

// FreedesktopBridge implements org.freedesktop.Notifications on top of the
// toast queue, so applications using notify-send or libnotify raise
// toasts. Notification ids are uint32 on the wire and mapped to queue ids.
type FreedesktopBridge struct {
	svc    Service
	logger *slog.Logger
	info   ServerInfo
	now    func() time.Time

	mu        sync.Mutex
	conn      *dbus.Conn
	running   bool
	lastID    uint32
	toQueue   map[uint32]string      // freedesktop id -> queue id
	fromQueue map[string]uint32      // queue id -> freedesktop id
	seen      map[string]model.Toast // last known state of bridged toasts
	requested map[string]bool        // queue ids closed via CloseNotification
}

// NewFreedesktopBridge creates a bridge backed by svc.
func NewFreedesktopBridge(svc Service, logger *slog.Logger) *FreedesktopBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &FreedesktopBridge{
		svc:       svc,
		logger:    logger,
		info:      DefaultServerInfo(),
		now:       time.Now,
		toQueue:   make(map[uint32]string),
		fromQueue: make(map[string]uint32),
		seen:      make(map[string]model.Toast),
		requested: make(map[string]bool),
	}
}

// SetServerInfo sets the information returned by GetServerInformation.
func (b *FreedesktopBridge) SetServerInfo(info ServerInfo) {
	b.info = info
}

// Start connects to the session bus and claims the notification bus name.
func (b *FreedesktopBridge) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return b.StartOn(conn)
}

// StartOn exports the notification object on conn.
func (b *FreedesktopBridge) StartOn(conn *dbus.Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("bridge already running")
	}

	if err := conn.Export(&freedesktopObject{b: b}, FreedesktopPath, FreedesktopInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: FreedesktopPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    FreedesktopInterface,
				Methods: notificationMethods(),
				Signals: notificationSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), FreedesktopPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(FreedesktopBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", FreedesktopBusName)
	}

	b.conn = conn
	b.running = true
	b.logger.Info("D-Bus notification bridge started", "interface", FreedesktopInterface)
	return nil
}

// Stop releases the bus name.
func (b *FreedesktopBridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}
	b.running = false

	if _, err := b.conn.ReleaseName(FreedesktopBusName); err != nil {
		b.logger.Warn("failed to release bus name", "error", err)
	}
	_ = b.conn.Export(nil, FreedesktopPath, FreedesktopInterface)
	b.conn = nil

	b.logger.Info("D-Bus notification bridge stopped")
	return nil
}

// notify raises or replaces a toast for n and returns its freedesktop id.
func (b *FreedesktopBridge) notify(ctx context.Context, n *DBusNotification) (uint32, error) {
	spec := n.ToSpec()

	b.mu.Lock()
	queueID, replacing := b.toQueue[n.ReplacesID]
	b.mu.Unlock()

	if n.ReplacesID > 0 && replacing {
		patch := model.Patch{
			Title:       model.Ptr(spec.Title),
			Description: model.Ptr(spec.Description),
			Variant:     model.Ptr(spec.Variant),
			Action:      spec.Action,
			ClearAction: spec.Action == nil,
		}
		if err := b.svc.Update(ctx, queueID, patch); err != nil {
			return 0, err
		}
		return n.ReplacesID, nil
	}

	queueID, err := b.svc.Show(ctx, spec)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastID++
	if b.lastID == 0 {
		b.lastID = 1
	}
	id := b.lastID
	b.toQueue[id] = queueID
	b.fromQueue[queueID] = id
	return id, nil
}

// closeNotification dismisses the toast behind id. Unknown ids are ignored.
func (b *FreedesktopBridge) closeNotification(ctx context.Context, id uint32) error {
	b.mu.Lock()
	queueID, ok := b.toQueue[id]
	if ok {
		b.requested[queueID] = true
	}
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return b.svc.Dismiss(ctx, queueID)
}

// ObserveState emits NotificationClosed for bridged toasts that left the
// queue. It has the signature of a queue listener.
func (b *FreedesktopBridge) ObserveState(toasts []model.Toast) {
	present := make(map[string]bool, len(toasts))

	b.mu.Lock()
	for _, t := range toasts {
		present[t.ID] = true
		if _, ok := b.fromQueue[t.ID]; ok {
			b.seen[t.ID] = t
		}
	}

	type closed struct {
		id     uint32
		reason CloseReason
	}
	var gone []closed
	for queueID, id := range b.fromQueue {
		if present[queueID] {
			continue
		}
		gone = append(gone, closed{id: id, reason: b.closeReason(queueID)})
		delete(b.fromQueue, queueID)
		delete(b.toQueue, id)
		delete(b.seen, queueID)
		delete(b.requested, queueID)
	}
	conn := b.conn
	b.mu.Unlock()

	for _, c := range gone {
		b.logger.Debug("bridged notification closed", "id", c.id, "reason", c.reason.String())
		if conn == nil {
			continue
		}
		if err := conn.Emit(FreedesktopPath, FreedesktopInterface+".NotificationClosed", c.id, uint32(c.reason)); err != nil {
			b.logger.Warn("failed to emit NotificationClosed signal", "id", c.id, "error", err)
		}
	}
}

// closeReason infers why a toast left the queue. The caller must hold b.mu.
func (b *FreedesktopBridge) closeReason(queueID string) CloseReason {
	if b.requested[queueID] {
		return CloseReasonClosed
	}
	t, ok := b.seen[queueID]
	if !ok {
		// Removed before any broadcast reached the bridge after Notify.
		return CloseReasonDismissed
	}
	if !t.Persistent() && b.now().Sub(t.CreatedAt) >= t.DurationTime() {
		return CloseReasonExpired
	}
	return CloseReasonDismissed
}

// freedesktopObject holds the methods exported on the bus.
type freedesktopObject struct {
	b *FreedesktopBridge
}

// GetCapabilities returns the list of capabilities supported by the bridge.
// D-Bus method: GetCapabilities() -> as
func (o *freedesktopObject) GetCapabilities() ([]string, *dbus.Error) {
	return ServerCapabilities, nil
}

// GetServerInformation returns information about the notification server.
// D-Bus method: GetServerInformation() -> (ssss)
func (o *freedesktopObject) GetServerInformation() (string, string, string, string, *dbus.Error) {
	info := o.b.info
	return info.Name, info.Vendor, info.Version, info.SpecVersion, nil
}

// Notify handles incoming notification requests.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (o *freedesktopObject) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	o.b.logger.Debug("Notify called",
		"app_name", appName,
		"replaces_id", replacesID,
		"summary", summary,
	)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	id, err := o.b.notify(ctx, &DBusNotification{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	})
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	return id, nil
}

// CloseNotification closes a notification by ID.
// D-Bus method: CloseNotification(u) -> nothing
func (o *freedesktopObject) CloseNotification(id uint32) *dbus.Error {
	o.b.logger.Debug("CloseNotification called", "id", id)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := o.b.closeNotification(ctx, id); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// notificationMethods returns the D-Bus method introspection data.
func notificationMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetCapabilities",
			Args: []introspect.Arg{
				{Name: "capabilities", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
				{Name: "spec_version", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "app_name", Type: "s", Direction: "in"},
				{Name: "replaces_id", Type: "u", Direction: "in"},
				{Name: "app_icon", Type: "s", Direction: "in"},
				{Name: "summary", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "actions", Type: "as", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "expire_timeout", Type: "i", Direction: "in"},
				{Name: "id", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "CloseNotification",
			Args: []introspect.Arg{
				{Name: "id", Type: "u", Direction: "in"},
			},
		},
	}
}

// notificationSignals returns the D-Bus signal introspection data.
func notificationSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "NotificationClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "reason", Type: "u"},
			},
		},
	}
}
