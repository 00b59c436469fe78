// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastq/internal/model"
)

// Default configuration values for toastctl.
const (
	DefaultTransport = "dbus"
	DefaultServerURL = "http://127.0.0.1:7821"
	DefaultFormat    = "plain"
)

// Config represents the toastctl configuration.
type Config struct {
	Client ClientConfig `toml:"client"`
	Output OutputConfig `toml:"output"`
	TUI    TUIConfig    `toml:"tui"`
	Theme  ThemeConfig  `toml:"theme"`
}

// ClientConfig selects how toastctl reaches the daemon.
type ClientConfig struct {
	Transport string `toml:"transport"`  // dbus, http
	ServerURL string `toml:"server_url"` // Used by the http transport
}

// OutputConfig holds default list output options.
type OutputConfig struct {
	Format string `toml:"format"` // json, yaml, plain, ids
}

// TUIConfig holds watch view settings.
type TUIConfig struct {
	ShowHelp bool `toml:"show_help"`
}

// ThemeConfig overrides the built-in presentation per variant.
type ThemeConfig struct {
	Variants map[string]VariantStyle `toml:"variants"`
}

// VariantStyle overrides one variant's presentation. Empty fields keep the
// built-in value. Colours are ANSI numbers ("9") or hex ("#ff5555").
type VariantStyle struct {
	Icon       string `toml:"icon"`
	Label      string `toml:"label"`
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Transport: DefaultTransport,
			ServerURL: DefaultServerURL,
		},
		Output: OutputConfig{
			Format: DefaultFormat,
		},
		TUI: TUIConfig{
			ShowHelp: true,
		},
		Theme: ThemeConfig{
			Variants: make(map[string]VariantStyle),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toastq", "toastctl.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the transport and theme sections.
func (c *Config) Validate() error {
	switch c.Client.Transport {
	case "dbus":
	case "http":
		if c.Client.ServerURL == "" {
			return errors.New("client server_url is required for the http transport")
		}
	default:
		return fmt.Errorf("client transport must be dbus or http, got %q", c.Client.Transport)
	}

	for name := range c.Theme.Variants {
		if !model.Variant(name).Valid() {
			return fmt.Errorf("theme: unknown variant %q", name)
		}
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
