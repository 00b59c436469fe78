package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/core"
	"github.com/jmylchreest/toastq/internal/model"
)

// closeOpts holds the flags shared by dismiss and remove.
type closeOpts struct {
	all   bool
	stdin bool
}

var (
	dismissOpts closeOpts
	removeOpts  closeOpts
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss [id|#index...]",
	Short: "Close toasts",
	Long: `Close toasts. Closed toasts leave the queue after the removal delay.

Toasts are named by id or by position from the top ("#1" is the newest).
Unknown ids are ignored by the daemon.

Examples:
  toastctl dismiss 12
  toastctl dismiss '#1'
  toastctl dismiss --all

  # Close every warning
  toastctl list --variant warning --format ids | toastctl dismiss --stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClose(cmd, args, dismissOpts, "dismiss",
			func(ctx context.Context, c daemonClient) error { return c.DismissAll(ctx) },
			func(ctx context.Context, c daemonClient, id string) error { return c.Dismiss(ctx, id) })
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove [id|#index...]",
	Aliases: []string{"rm"},
	Short:   "Remove toasts immediately",
	Long: `Remove toasts from the queue without the closing delay.

Toasts are named as for dismiss.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClose(cmd, args, removeOpts, "remove",
			func(ctx context.Context, c daemonClient) error { return c.RemoveAll(ctx) },
			func(ctx context.Context, c daemonClient, id string) error { return c.Remove(ctx, id) })
	},
}

func init() {
	rootCmd.AddCommand(dismissCmd, removeCmd)

	for _, c := range []struct {
		cmd  *cobra.Command
		opts *closeOpts
	}{{dismissCmd, &dismissOpts}, {removeCmd, &removeOpts}} {
		c.cmd.Flags().BoolVarP(&c.opts.all, "all", "a", false, "Apply to every toast")
		c.cmd.Flags().BoolVar(&c.opts.stdin, "stdin", false, "Read ids from stdin, one per line")
	}
}

func runClose(
	cmd *cobra.Command,
	args []string,
	opts closeOpts,
	verb string,
	all func(context.Context, daemonClient) error,
	one func(context.Context, daemonClient, string) error,
) error {
	refs := args
	if opts.stdin {
		read, err := readRefs(cmd.InOrStdin())
		if err != nil {
			return err
		}
		refs = append(refs, read...)
	}

	switch {
	case opts.all && len(refs) > 0:
		return fmt.Errorf("--all takes no ids")
	case !opts.all && len(refs) == 0:
		return fmt.Errorf("name a toast to %s, or use --all", verb)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if opts.all {
		return all(ctx, client)
	}

	ids, err := resolveRefs(ctx, client, refs)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := one(ctx, client, id); err != nil {
			return fmt.Errorf("failed to %s toast %s: %w", verb, id, err)
		}
	}
	return nil
}

// resolveRefs maps "#N" references to ids. A snapshot is only fetched when
// a positional reference is present.
func resolveRefs(ctx context.Context, client daemonClient, refs []string) ([]string, error) {
	var toasts []model.Toast
	for _, ref := range refs {
		if strings.HasPrefix(ref, "#") {
			var err error
			if toasts, err = client.Snapshot(ctx); err != nil {
				return nil, fmt.Errorf("failed to list toasts: %w", err)
			}
			break
		}
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, ok := core.Resolve(toasts, ref)
		if !ok && id == "" {
			return nil, fmt.Errorf("no toast at %s", ref)
		}
		if !ok {
			logger.Debug("toast not in queue, sending anyway", "id", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readRefs reads one reference per line, as printed by "list --format ids".
// Only the first field of each line is used.
func readRefs(r io.Reader) ([]string, error) {
	var refs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		refs = append(refs, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return refs, nil
}
