package audio

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/toast"
)

// player is the playback surface used by Manager.
type player interface {
	Play(path string) error
	Preload(path string) error
	SetVolume(volume float64)
	InvalidateCache(path string)
	ClearCache()
	Close()
}

// Manager plays the sound configured for a toast's variant when the toast
// is enqueued. Playback runs on its own goroutine so queue listeners never
// wait on file I/O.
type Manager struct {
	logger  *slog.Logger
	player  player
	watcher *Watcher
	onError func(error)

	mu      sync.RWMutex
	enabled bool
	sounds  map[model.Variant]string

	requests chan model.Variant
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewManager creates a manager configured from cfg.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	return newManager(cfg, NewPlayer(logger), logger)
}

func newManager(cfg *config.DaemonConfig, p player, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger:   logger,
		player:   p,
		watcher:  NewWatcher(p, logger),
		sounds:   make(map[model.Variant]string),
		requests: make(chan model.Variant, 8),
	}
	m.apply(cfg)
	return m
}

// SetErrorCallback sets a function called when a sound fails to play.
// It must be set before Start.
func (m *Manager) SetErrorCallback(fn func(error)) {
	m.onError = fn
}

// apply loads volume and per-variant sounds from cfg.
func (m *Manager) apply(cfg *config.DaemonConfig) {
	sounds := make(map[model.Variant]string)
	enabled := false
	if cfg != nil {
		enabled = cfg.Audio.Enabled
		m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
		for _, v := range model.Variants() {
			path := cfg.SoundForVariant(v)
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				m.logger.Warn("sound file not found", "variant", v, "path", path)
				continue
			}
			sounds[v] = path
		}
	}

	m.mu.Lock()
	m.enabled = enabled
	m.sounds = sounds
	m.mu.Unlock()

	m.watcher.Reset()
	for _, path := range sounds {
		m.watcher.Watch(path)
	}
}

// Start preloads sounds and starts the playback goroutine and file watcher.
func (m *Manager) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)
	m.preload()
	if err := m.watcher.Start(ctx); err != nil {
		m.cancel()
		m.cancel = nil
		return err
	}

	m.done = make(chan struct{})
	go m.run(ctx)

	m.mu.RLock()
	m.logger.Info("audio manager started", "enabled", m.enabled, "sounds", len(m.sounds))
	m.mu.RUnlock()
	return nil
}

func (m *Manager) preload() {
	m.mu.RLock()
	enabled := m.enabled
	paths := make([]string, 0, len(m.sounds))
	for _, path := range m.sounds {
		paths = append(paths, path)
	}
	m.mu.RUnlock()

	if !enabled {
		return
	}
	for _, path := range paths {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
	}
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-m.requests:
			if err := m.PlayForVariant(v); err != nil {
				m.logger.Warn("failed to play sound", "variant", v, "error", err)
				if m.onError != nil {
					m.onError(err)
				}
			}
		}
	}
}

// OnEvent queues the variant's sound for enqueued toasts. It has the
// signature of a queue event hook and never blocks; sounds requested while
// the queue of pending plays is full are dropped.
func (m *Manager) OnEvent(e toast.Event) {
	if e.Kind != toast.EventEnqueued {
		return
	}
	select {
	case m.requests <- e.Variant:
	default:
		m.logger.Debug("sound dropped, playback busy", "variant", e.Variant)
	}
}

// PlayForVariant plays the sound configured for v, if any.
func (m *Manager) PlayForVariant(v model.Variant) error {
	m.mu.RLock()
	enabled := m.enabled
	path, ok := m.sounds[v]
	m.mu.RUnlock()

	if !enabled || !ok {
		return nil
	}
	return m.player.Play(path)
}

// UpdateConfig applies a reloaded configuration.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	m.player.ClearCache()
	m.apply(cfg)
	m.preload()
	m.logger.Debug("audio manager config updated")
}

// Stop ends playback and the watcher and releases the speaker.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
	}
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}
