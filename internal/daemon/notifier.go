package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/toastq/internal/model"
)

// InternalNotifier raises toasts about toastd itself, such as config
// reloads and audio failures. Each key is rate limited so a flapping
// condition cannot flood the queue.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Handler that enqueues the toast
	showHandler func(ctx context.Context, spec model.Spec) (string, error)

	limiters    map[string]*rate.Limiter
	minInterval time.Duration // minimum time between toasts with the same key

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:      logger,
		limiters:    make(map[string]*rate.Limiter),
		minInterval: 5 * time.Second,
		enabled:     true,
	}
}

// SetShowHandler sets the function used to enqueue toasts, normally
// Service.Show.
func (n *InternalNotifier) SetShowHandler(handler func(ctx context.Context, spec model.Spec) (string, error)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.showHandler = handler
}

// SetEnabled enables or disables internal toasts.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between toasts with the same
// key. Existing limiters are discarded.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
	n.limiters = make(map[string]*rate.Limiter)
}

// Notify enqueues a toast unless the key is rate limited.
func (n *InternalNotifier) Notify(key, title, description string, variant model.Variant) {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return
	}
	handler := n.showHandler
	if handler == nil {
		n.mu.Unlock()
		n.logger.Debug("internal toast skipped: no handler", "title", title)
		return
	}

	limiter, ok := n.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(n.minInterval), 1)
		n.limiters[key] = limiter
	}
	if !limiter.Allow() {
		n.mu.Unlock()
		n.logger.Debug("internal toast rate-limited", "key", key, "title", title)
		return
	}
	n.mu.Unlock()

	n.logger.Debug("raising internal toast", "key", key, "title", title, "variant", variant)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := handler(ctx, model.Spec{Title: title, Description: description, Variant: variant}); err != nil {
		n.logger.Warn("failed to raise internal toast", "key", key, "error", err)
	}
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration reloaded",
		"toastd configuration has been successfully reloaded.",
		model.VariantInfo,
	)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration error",
		"Failed to reload configuration: "+err.Error(),
		model.VariantDestructive,
	)
}

// NotifyRestartRequired reports settings that only apply after a restart.
func (n *InternalNotifier) NotifyRestartRequired(section string) {
	n.Notify(
		"restart-required",
		"Restart required",
		"Changes to ["+section+"] take effect when toastd restarts.",
		model.VariantWarning,
	)
}

// NotifyStartup reports that the daemon is running.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify(
		"startup",
		"toastd started",
		"Toast daemon v"+version+" is now running.",
		model.VariantSuccess,
	)
}

// NotifyAudioError reports a sound that could not be played.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify(
		"audio-error",
		"Audio error",
		"Failed to play toast sound: "+err.Error(),
		model.VariantWarning,
	)
}
