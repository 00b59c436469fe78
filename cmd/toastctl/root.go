// Package main provides the toastctl command line client for toastd.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/dbus"
	"github.com/jmylchreest/toastq/internal/httpapi"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/theme"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// requestTimeout bounds one-shot commands.
const requestTimeout = 10 * time.Second

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		transport  string
		serverURL  string
	}
	logger *slog.Logger

	// newClient is replaced in tests.
	newClient = connect
)

// daemonClient is the toastd surface shared by the D-Bus and HTTP clients.
type daemonClient interface {
	Show(ctx context.Context, spec model.Spec) (string, error)
	Dismiss(ctx context.Context, id string) error
	DismissAll(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	RemoveAll(ctx context.Context) error
	Update(ctx context.Context, id string, patch model.Patch) error
	Snapshot(ctx context.Context) ([]model.Toast, error)
	Watch(ctx context.Context) (<-chan []model.Toast, error)
}

var (
	_ daemonClient = (*dbus.Client)(nil)
	_ daemonClient = (*httpapi.Client)(nil)
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "toastctl",
	Short: "Raise and manage toasts on a running toastd",
	Long: `toastctl talks to toastd, the session toast daemon.

It raises toasts, dismisses or removes them, edits them in place, lists
the queue and watches it live.

The daemon is reached over D-Bus by default; use --transport http (or
[client] transport in ~/.config/toastq/toastctl.toml) to use the HTTP API.

Running toastctl without a subcommand opens the live watch view.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flags win over the config file.
		if globalOpts.transport != "" {
			cfg.Client.Transport = globalOpts.transport
		}
		if globalOpts.serverURL != "" {
			cfg.Client.ServerURL = globalOpts.serverURL
		}
		return cfg.Validate()
	},
	// Default to the watch view when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/toastq/toastctl.toml)")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.transport, "transport", "t", "",
		"How to reach toastd (dbus, http)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.serverURL, "server", "",
		"toastd HTTP address for the http transport")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// connect opens a client for the configured transport.
func connect(c *config.Config) (daemonClient, error) {
	logger.Debug("connecting to toastd", "transport", c.Client.Transport)
	switch c.Client.Transport {
	case "http":
		return httpapi.NewClient(c.Client.ServerURL, nil)
	default:
		return dbus.Connect()
	}
}

// getClient returns a client for the loaded configuration.
func getClient() (daemonClient, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to reach toastd: %w", err)
	}
	return client, nil
}

// getTheme builds the presentation from the config overrides.
func getTheme() *theme.Theme {
	if cfg == nil {
		return theme.Default()
	}
	return theme.New(cfg.Theme.Variants)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}
