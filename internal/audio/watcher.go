package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// invalidator drops cached sounds.
type invalidator interface {
	InvalidateCache(path string)
}

// newFSWatcher is replaced in tests.
var newFSWatcher = fsnotify.NewWatcher

// Watcher invalidates cached sounds when their files change on disk, so
// edited sounds are picked up without a restart. Directories are watched
// rather than files because editors replace files on save.
type Watcher struct {
	logger *slog.Logger
	cache  invalidator

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	paths   map[string]bool // cleaned file paths
	dirs    map[string]bool
	done    chan struct{}
}

// NewWatcher creates a watcher that invalidates entries in cache.
func NewWatcher(cache invalidator, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger: logger,
		cache:  cache,
		paths:  make(map[string]bool),
		dirs:   make(map[string]bool),
	}
}

// Start begins watching. It is a no-op if already started.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	fw, err := newFSWatcher()
	if err != nil {
		return fmt.Errorf("failed to create sound watcher: %w", err)
	}
	w.watcher = fw
	w.done = make(chan struct{})

	for dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}

	go w.run(ctx, fw, w.done)
	return nil
}

// Watch adds a sound file. It may be called before or after Start.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(expandPath(path))
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths[path] = true
	if w.dirs[dir] {
		return
	}
	w.dirs[dir] = true
	if w.watcher != nil {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}
}

// Reset forgets every watched file. Directories stay watched until Stop.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = make(map[string]bool)
}

// Stop ends watching and waits for the event goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()

	if fw == nil {
		return
	}
	_ = fw.Close()
	<-done
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			path := filepath.Clean(ev.Name)
			w.mu.Lock()
			tracked := w.paths[path]
			w.mu.Unlock()
			if tracked {
				w.logger.Debug("sound file changed, invalidating cache", "path", path)
				w.cache.InvalidateCache(path)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)
		}
	}
}
