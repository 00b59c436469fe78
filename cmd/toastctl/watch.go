package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the toast queue live",
	Long: `Open an interactive view of the toast queue that follows every change.

Key bindings:
  j/k, ↑/↓    Navigate list
  enter       View toast details
  d           Dismiss toast
  D           Remove toast now
  X           Dismiss all toasts
  a           Show or hide dismissed toasts
  c           Copy title and description to clipboard
  C, alt+c    Copy visible toasts as JSON or YAML
  /           Search
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	updates, err := client.Watch(ctx)
	if err != nil {
		return err
	}

	return tui.Run(tui.Options{
		Client:   client,
		Updates:  updates,
		Theme:    getTheme(),
		ShowHelp: cfg.TUI.ShowHelp,
	})
}
