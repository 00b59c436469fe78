// Package main is the entry point for the toastd toast daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/audio"
	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/daemon"
	"github.com/jmylchreest/toastq/internal/dbus"
	"github.com/jmylchreest/toastq/internal/httpapi"
	"github.com/jmylchreest/toastq/internal/loop"
	"github.com/jmylchreest/toastq/internal/metrics"
	"github.com/jmylchreest/toastq/internal/schedule"
	"github.com/jmylchreest/toastq/internal/toast"
)

var (
	// Build-time variables
	version = "dev"
)

// shutdownTimeout bounds how long in-flight HTTP requests get on exit.
const shutdownTimeout = 5 * time.Second

type options struct {
	configPath string
	verbose    bool
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:           "toastd",
		Short:         "Toast notification daemon",
		Long:          "toastd hosts the session's toast queue and exposes it over D-Bus and HTTP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: ~/.config/toastq/toastd.toml)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	configPath := opts.configPath
	if configPath == "" {
		var err error
		configPath, err = config.DaemonConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return err
	}

	// Set up structured logging; the level follows config reloads unless
	// --verbose pins it.
	level := new(slog.LevelVar)
	level.Set(logLevel(cfg, opts.verbose))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting toastd", "version", version, "config", configPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	audioManager := audio.NewManager(cfg, logger)

	// The queue lives on the loop goroutine; timers post back onto it.
	l := loop.New(64)
	q := toast.New(schedule.NewTimer(l.Post),
		toast.WithLimits(cfg.Queue.Limits()),
		toast.WithLogger(logger),
		toast.WithEventHook(func(e toast.Event) {
			m.ObserveEvent(e)
			audioManager.OnEvent(e)
		}),
	)
	svc := daemon.NewService(l, q, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- l.Run(ctx) }()

	if _, err := svc.Subscribe(ctx, m.ObserveState); err != nil {
		return fmt.Errorf("failed to subscribe metrics: %w", err)
	}

	notifier := daemon.NewInternalNotifier(logger)
	notifier.SetShowHandler(svc.Show)

	audioManager.SetErrorCallback(notifier.NotifyAudioError)
	if err := audioManager.Start(ctx); err != nil {
		logger.Warn("failed to start audio manager", "error", err)
	}
	defer audioManager.Stop()

	info := dbus.DefaultServerInfo()
	info.Version = version

	if cfg.DBus.Enabled {
		server := dbus.NewServer(svc, logger)
		server.SetServerInfo(info)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start D-Bus server: %w", err)
		}
		defer func() { _ = server.Stop() }()

		if _, err := svc.Subscribe(ctx, server.EmitStateChanged); err != nil {
			return fmt.Errorf("failed to subscribe D-Bus server: %w", err)
		}
	}

	if cfg.DBus.Freedesktop {
		bridge := dbus.NewFreedesktopBridge(svc, logger)
		bridge.SetServerInfo(info)
		if err := bridge.Start(); err != nil {
			// Another notification daemon usually owns the name.
			logger.Warn("failed to start freedesktop bridge", "error", err)
		} else {
			defer func() { _ = bridge.Stop() }()
			if _, err := svc.Subscribe(ctx, bridge.ObserveState); err != nil {
				return fmt.Errorf("failed to subscribe freedesktop bridge: %w", err)
			}
		}
	}

	serveErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		httpServer := httpapi.NewServer(svc, cfg.HTTP, reg, logger)
		if err := httpServer.Start(func(err error) { serveErr <- err }); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown failed", "error", err)
			}
		}()
	}

	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
		// Sections wired at startup keep the values they started with.
		for _, section := range daemon.RestartSections(cfg, newConfig) {
			logger.Warn("config change needs a restart", "section", section)
			notifier.NotifyRestartRequired(section)
		}
		audioManager.UpdateConfig(newConfig)
		level.Set(logLevel(newConfig, opts.verbose))
		notifier.NotifyConfigReloaded()
	})
	configWatcher.SetErrorCallback(notifier.NotifyConfigError)
	if err := configWatcher.Start(ctx, cfg); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	} else {
		defer configWatcher.Stop()
	}

	logger.Info("toastd ready", "dbus", cfg.DBus.Enabled, "freedesktop", cfg.DBus.Freedesktop, "http", cfg.HTTP.Enabled)
	notifier.NotifyStartup(version)

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("http server: %w", err)
	case err := <-loopDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event loop stopped: %w", err)
		}
	}

	return nil
}

func logLevel(cfg *config.DaemonConfig, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return cfg.Log.SlogLevel()
}
