package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "dbus", cfg.Client.Transport)
	assert.Equal(t, "http://127.0.0.1:7821", cfg.Client.ServerURL)
	assert.Equal(t, "plain", cfg.Output.Format)
	assert.True(t, cfg.TUI.ShowHelp)
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/toastctl.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastctl.toml")

	content := `
[client]
transport = "http"
server_url = "http://10.0.0.2:9000"

[output]
format = "json"

[tui]
show_help = false

[theme.variants.success]
icon = "+"
foreground = "#00ff00"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Client.Transport)
	assert.Equal(t, "http://10.0.0.2:9000", cfg.Client.ServerURL)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.TUI.ShowHelp)
	assert.Equal(t, VariantStyle{Icon: "+", Foreground: "#00ff00"}, cfg.Theme.Variants["success"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"transport", "[client]\ntransport = \"carrier-pigeon\"", "transport"},
		{"http without url", "[client]\ntransport = \"http\"\nserver_url = \"\"", "server_url"},
		{"theme variant", "[theme.variants.loud]\nicon = \"!\"", "unknown variant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "toastctl.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastctl.toml")

	require.NoError(t, os.WriteFile(path, []byte("[output]\nformat = \"ids\"\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ids", cfg.Output.Format)
	assert.Equal(t, "dbus", cfg.Client.Transport)
	assert.True(t, cfg.TUI.ShowHelp)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "toastctl.toml")

	cfg := DefaultConfig()
	cfg.Output.Format = "yaml"
	cfg.Theme.Variants["info"] = VariantStyle{Label: "FYI"}

	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", loaded.Output.Format)
	assert.Equal(t, "FYI", loaded.Theme.Variants["info"].Label)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/toastq/toastctl.toml", ConfigPath())
}

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, ConfigPath(), filepath.Join("toastq", "toastctl.toml"))
}
