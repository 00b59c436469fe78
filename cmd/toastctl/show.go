package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/adapter/input"
	"github.com/jmylchreest/toastq/internal/model"
)

// toastFlags holds the flags shared by show and the variant shorthands.
type toastFlags struct {
	title       string
	description string
	variant     string
	duration    string
	actionKey   string
	actionLabel string
	clearAction bool // update only
}

var showOpts struct {
	toastFlags
	stdin bool
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Raise a toast",
	Long: `Raise a toast and print its id.

Durations are Go durations ("5s", "1m30s") or whole milliseconds ("2500").
A duration of 0 keeps the toast open until it is dismissed; leaving it
unset uses the daemon's default.

With --stdin, toast requests are read from standard input instead: a JSON
array, a single JSON object, or one JSON object per line. Each item is a
toast ({"title": ...}) or a show-toast event envelope.

Examples:
  # Raise a success toast
  toastctl show --title "Deploy finished" --variant success

  # A toast that stays until dismissed, with an action
  toastctl show --title "Disk almost full" --variant warning --duration 0 \
    --action-key open-disk-usage --action-label "Open"

  # Raise several toasts from a file
  toastctl show --stdin < toasts.jsonl`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showOpts.title, "title", "", "Toast title")
	showCmd.Flags().StringVarP(&showOpts.description, "description", "d", "", "Toast description")
	showCmd.Flags().StringVar(&showOpts.variant, "variant", "",
		"Variant (default, destructive, success, warning, info)")
	addCommonToastFlags(showCmd, &showOpts.toastFlags)
	showCmd.Flags().BoolVar(&showOpts.stdin, "stdin", false,
		"Read toast requests from stdin")

	for _, sc := range []struct {
		use     string
		variant model.Variant
		aliases []string
	}{
		{"success", model.VariantSuccess, nil},
		{"error", model.VariantDestructive, []string{"destructive"}},
		{"warning", model.VariantWarning, []string{"warn"}},
		{"info", model.VariantInfo, nil},
	} {
		rootCmd.AddCommand(newShorthandCmd(sc.use, sc.variant, sc.aliases))
	}
}

func addCommonToastFlags(cmd *cobra.Command, f *toastFlags) {
	cmd.Flags().StringVar(&f.duration, "duration", "",
		"Display time, e.g. 5s or 2500 (ms); 0 keeps it open")
	cmd.Flags().StringVar(&f.actionKey, "action-key", "", "Action key reported back to the caller")
	cmd.Flags().StringVar(&f.actionLabel, "action-label", "", "Action button label")
}

// newShorthandCmd builds "toastctl <variant> <title> [description]".
func newShorthandCmd(use string, variant model.Variant, aliases []string) *cobra.Command {
	var f toastFlags
	cmd := &cobra.Command{
		Use:     use + " <title> [description]",
		Aliases: aliases,
		Short:   fmt.Sprintf("Raise a %s toast", variant),
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.title = args[0]
			if len(args) > 1 {
				f.description = args[1]
			}
			spec, err := f.spec()
			if err != nil {
				return err
			}
			return showSpecs(cmd, []model.Spec{spec.WithVariant(variant)})
		},
	}
	addCommonToastFlags(cmd, &f)
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	if showOpts.stdin {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		adapter, err := input.NewAdapter("stdin")
		if err != nil {
			return err
		}
		specs, err := adapter.Import(ctx)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			return fmt.Errorf("no toast requests on stdin")
		}
		return showSpecs(cmd, specs)
	}

	spec, err := showOpts.spec()
	if err != nil {
		return err
	}
	if spec.Title == "" && spec.Description == "" {
		return fmt.Errorf("a toast needs --title or --description")
	}
	return showSpecs(cmd, []model.Spec{spec})
}

// showSpecs raises each spec in order and prints the new ids.
func showSpecs(cmd *cobra.Command, specs []model.Spec) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	for _, spec := range specs {
		id, err := client.Show(ctx, spec)
		if err != nil {
			return fmt.Errorf("failed to show toast: %w", err)
		}
		logger.Debug("toast raised", "id", id, "variant", spec.Variant)
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

// spec converts the flags into a validated Spec.
func (f *toastFlags) spec() (model.Spec, error) {
	variant, err := model.ParseVariant(f.variant)
	if err != nil {
		return model.Spec{}, err
	}

	spec := model.Spec{
		Title:       f.title,
		Description: f.description,
		Variant:     variant,
	}
	if f.duration != "" {
		ms, err := parseDurationMs(f.duration)
		if err != nil {
			return model.Spec{}, err
		}
		spec.Duration = &ms
	}
	if f.actionKey != "" {
		spec.Action = &model.Action{Key: f.actionKey, Label: f.actionLabel}
	} else if f.actionLabel != "" {
		return model.Spec{}, fmt.Errorf("--action-label needs --action-key")
	}
	return spec, nil
}

// parseDurationMs accepts whole milliseconds or a Go duration string.
func parseDurationMs(s string) (int, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return ms, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use 5s, 1m or milliseconds", s)
	}
	return int(d / time.Millisecond), nil
}
