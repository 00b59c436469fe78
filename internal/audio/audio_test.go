package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/toast"
)

type fakePlayer struct {
	mu          sync.Mutex
	played      []string
	preloaded   []string
	invalidated []string
	volume      float64
	cleared     int
	closed      bool
	playErr     error
}

func (f *fakePlayer) Play(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return f.playErr
}

func (f *fakePlayer) Preload(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloaded = append(f.preloaded, path)
	return nil
}

func (f *fakePlayer) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakePlayer) InvalidateCache(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, path)
}

func (f *fakePlayer) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakePlayer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakePlayer) playedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func (f *fakePlayer) invalidatedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalidated...)
}

// soundConfig writes placeholder sound files and returns a config using them.
func soundConfig(t *testing.T, enabled bool) (*config.DaemonConfig, string, string) {
	t.Helper()
	dir := t.TempDir()
	errSound := filepath.Join(dir, "error.wav")
	okSound := filepath.Join(dir, "ok.ogg")
	require.NoError(t, os.WriteFile(errSound, []byte("RIFF"), 0644))
	require.NoError(t, os.WriteFile(okSound, []byte("OggS"), 0644))

	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = enabled
	cfg.Audio.Volume = 50
	cfg.Audio.Sounds.Destructive = errSound
	cfg.Audio.Sounds.Success = okSound
	cfg.Audio.Sounds.Warning = filepath.Join(dir, "missing.wav")
	return cfg, errSound, okSound
}

func TestManager_PlayForVariant(t *testing.T) {
	cfg, errSound, okSound := soundConfig(t, true)
	p := &fakePlayer{}
	m := newManager(cfg, p, nil)

	assert.Equal(t, 0.5, p.volume)

	require.NoError(t, m.PlayForVariant(model.VariantDestructive))
	require.NoError(t, m.PlayForVariant(model.VariantSuccess))
	require.NoError(t, m.PlayForVariant(model.VariantWarning), "missing files are skipped")
	require.NoError(t, m.PlayForVariant(model.VariantInfo), "no sound configured")

	assert.Equal(t, []string{errSound, okSound}, p.playedPaths())
}

func TestManager_Disabled(t *testing.T) {
	cfg, _, _ := soundConfig(t, false)
	p := &fakePlayer{}
	m := newManager(cfg, p, nil)

	require.NoError(t, m.PlayForVariant(model.VariantDestructive))
	assert.Empty(t, p.playedPaths())
}

func TestManager_OnEvent(t *testing.T) {
	cfg, errSound, _ := soundConfig(t, true)
	p := &fakePlayer{}
	m := newManager(cfg, p, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	m.OnEvent(toast.Event{Kind: toast.EventDismissed, ID: "1", Variant: model.VariantDestructive})
	m.OnEvent(toast.Event{Kind: toast.EventEnqueued, ID: "2", Variant: model.VariantDestructive})

	require.Eventually(t, func() bool {
		return len(p.playedPaths()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{errSound}, p.playedPaths())
}

func TestManager_ErrorCallback(t *testing.T) {
	cfg, _, _ := soundConfig(t, true)
	p := &fakePlayer{playErr: errors.New("no audio device")}
	m := newManager(cfg, p, nil)

	errs := make(chan error, 1)
	m.SetErrorCallback(func(err error) { errs <- err })
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	m.OnEvent(toast.Event{Kind: toast.EventEnqueued, Variant: model.VariantSuccess})

	select {
	case err := <-errs:
		assert.EqualError(t, err, "no audio device")
	case <-time.After(2 * time.Second):
		t.Fatal("error callback not called")
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	cfg, _, okSound := soundConfig(t, true)
	p := &fakePlayer{}
	m := newManager(cfg, p, nil)

	updated := *cfg
	updated.Audio.Sounds.Destructive = ""
	updated.Audio.Sounds.Info = okSound
	updated.Audio.Volume = 100
	m.UpdateConfig(&updated)

	assert.Equal(t, 1, p.cleared)
	assert.Equal(t, 1.0, p.volume)

	require.NoError(t, m.PlayForVariant(model.VariantDestructive))
	require.NoError(t, m.PlayForVariant(model.VariantInfo))
	assert.Equal(t, []string{okSound}, p.playedPaths())
}

func TestManager_StopClosesPlayer(t *testing.T) {
	p := &fakePlayer{}
	m := newManager(nil, p, nil)
	require.NoError(t, m.Start(context.Background()))
	m.Stop()
	assert.True(t, p.closed)
}

func TestManager_StopAfterFailedStart(t *testing.T) {
	orig := newFSWatcher
	newFSWatcher = func() (*fsnotify.Watcher, error) {
		return nil, errors.New("too many open files")
	}
	t.Cleanup(func() { newFSWatcher = orig })

	p := &fakePlayer{}
	m := newManager(nil, p, nil)
	require.ErrorContains(t, m.Start(context.Background()), "too many open files")

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
	assert.True(t, p.closed)
}

func TestWatcher_InvalidatesChangedSound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ping.wav")
	other := filepath.Join(dir, "other.wav")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	p := &fakePlayer{}
	w := NewWatcher(p, nil)
	w.Watch(path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0644))

	require.Eventually(t, func() bool {
		return len(p.invalidatedPaths()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	for _, got := range p.invalidatedPaths() {
		assert.Equal(t, path, got)
	}
}

func TestPlayer_Volume(t *testing.T) {
	p := NewPlayer(nil)
	assert.Equal(t, 1.0, p.Volume())

	p.SetVolume(0.3)
	assert.Equal(t, 0.3, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())
	p.SetVolume(7)
	assert.Equal(t, 1.0, p.Volume())
}

func TestPlayer_LoadErrors(t *testing.T) {
	p := NewPlayer(nil)
	assert.NoError(t, p.Play(""))
	assert.NoError(t, p.Preload(""))

	err := p.Preload(filepath.Join(t.TempDir(), "nope.wav"))
	assert.ErrorContains(t, err, "failed to open")

	txt := filepath.Join(t.TempDir(), "sound.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))
	assert.ErrorContains(t, p.Preload(txt), "unsupported audio format")
}

func TestGainExponent(t *testing.T) {
	assert.InDelta(t, 0.0, gainExponent(1), 1e-9)
	assert.InDelta(t, -1.0, gainExponent(0.5), 1e-9)
	assert.InDelta(t, -2.0, gainExponent(0.25), 1e-9)
	assert.Equal(t, -10.0, gainExponent(0))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sounds/a.wav"), expandPath("~/sounds/a.wav"))
	assert.Equal(t, "/abs/a.wav", expandPath("/abs/a.wav"))
}
