package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/toast"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "300ms", "5s", "1m", or a quoted integer number of milliseconds.
// A value of "0" means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '300ms', '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for toastd.
// Loaded from ~/.config/toastq/toastd.toml
type DaemonConfig struct {
	Queue QueueConfig `toml:"queue"`
	HTTP  HTTPConfig  `toml:"http"`
	DBus  DBusConfig  `toml:"dbus"`
	Audio AudioConfig `toml:"audio"`
	Log   LogConfig   `toml:"log"`
}

// QueueConfig bounds the toast queue. Changes take effect on restart.
type QueueConfig struct {
	Capacity        int      `toml:"capacity"`         // Maximum toasts held at once
	DefaultDuration Duration `toml:"default_duration"` // "0" keeps toasts open until dismissed
	RemoveDelay     Duration `toml:"remove_delay"`     // Time between dismissal and removal
}

// Limits converts the section to queue limits.
func (q QueueConfig) Limits() toast.Limits {
	return toast.Limits{
		Capacity:        q.Capacity,
		DefaultDuration: q.DefaultDuration.Duration(),
		RemoveDelay:     q.RemoveDelay.Duration(),
	}
}

// HTTPConfig contains the REST/WebSocket listener settings.
type HTTPConfig struct {
	Enabled        bool     `toml:"enabled"`
	Listen         string   `toml:"listen"`          // host:port
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins, "*" for any
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

// DBusConfig contains session bus settings.
type DBusConfig struct {
	Enabled bool `toml:"enabled"`
	// Freedesktop also claims org.freedesktop.Notifications so notify-send
	// raises toasts. Leave off when another notification daemon runs.
	Freedesktop bool `toml:"freedesktop"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-variant sound file paths. Empty means silent.
type SoundConfig struct {
	Default     string `toml:"default"`
	Destructive string `toml:"destructive"`
	Success     string `toml:"success"`
	Warning     string `toml:"warning"`
	Info        string `toml:"info"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// SlogLevel converts the configured level.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	limits := toast.DefaultLimits()
	return &DaemonConfig{
		Queue: QueueConfig{
			Capacity:        limits.Capacity,
			DefaultDuration: Duration(limits.DefaultDuration),
			RemoveDelay:     Duration(limits.RemoveDelay),
		},
		HTTP: HTTPConfig{
			Enabled:        true,
			Listen:         "127.0.0.1:7821",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			MaxBodyBytes:   64 << 10,
		},
		DBus: DBusConfig{
			Enabled: true,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
			Sounds:  SoundConfig{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "toastq", "toastd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from path, or from
// DaemonConfigPath when path is empty.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		var err error
		path, err = DaemonConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Queue.Capacity < 1 || c.Queue.Capacity > 50 {
		return fmt.Errorf("queue capacity must be between 1 and 50, got %d", c.Queue.Capacity)
	}
	if c.Queue.DefaultDuration < 0 {
		return fmt.Errorf("queue default_duration must not be negative, got %s", c.Queue.DefaultDuration.Duration())
	}
	if c.Queue.RemoveDelay < 0 || c.Queue.RemoveDelay.Duration() > time.Minute {
		return fmt.Errorf("queue remove_delay must be between 0 and 1m, got %s", c.Queue.RemoveDelay.Duration())
	}

	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		return errors.New("http listen address is required when http is enabled")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http max_body_bytes must not be negative, got %d", c.HTTP.MaxBodyBytes)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	return nil
}

// SoundForVariant returns the sound file path for the given variant.
// Expands ~ to home directory.
func (c *DaemonConfig) SoundForVariant(v model.Variant) string {
	var path string
	switch v {
	case model.VariantDestructive:
		path = c.Audio.Sounds.Destructive
	case model.VariantSuccess:
		path = c.Audio.Sounds.Success
	case model.VariantWarning:
		path = c.Audio.Sounds.Warning
	case model.VariantInfo:
		path = c.Audio.Sounds.Info
	default:
		path = c.Audio.Sounds.Default
	}
	return expandPath(path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
