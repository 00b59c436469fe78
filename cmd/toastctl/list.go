package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/adapter/output"
	"github.com/jmylchreest/toastq/internal/core"
	"github.com/jmylchreest/toastq/internal/model"
)

var listOpts struct {
	// Filter options
	variant string
	open    bool
	closed  bool
	filter  string
	search  string
	limit   int

	// Output options
	format   string
	field    string
	template string
}

var listCmd = &cobra.Command{
	Use:     "list [id|#index]",
	Aliases: []string{"ls"},
	Short:   "Print the toast queue",
	Long: `Print the toasts currently in the queue, newest first.

With an id or "#index" argument only that toast is printed.

Filter expressions combine conditions with commas (all must match):
  title~deploy          title contains "deploy"
  variant=warning       exact variant
  open=true             only visible toasts
  duration=0            toasts that stay until dismissed
  age>30s               raised more than 30 seconds ago
  description~=^disk    regular expression

Examples:
  toastctl list
  toastctl list --format json
  toastctl list --variant destructive --open --format ids
  toastctl list --filter "age>1m,open=true"
  toastctl list '#1' --field description`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	// Filter flags
	listCmd.Flags().StringVar(&listOpts.variant, "variant", "",
		"Only toasts of this variant")
	listCmd.Flags().BoolVar(&listOpts.open, "open", false,
		"Only visible toasts")
	listCmd.Flags().BoolVar(&listOpts.closed, "closed", false,
		"Only dismissed toasts waiting for removal")
	listCmd.Flags().StringVar(&listOpts.filter, "filter", "",
		"Filter expression (see above)")
	listCmd.Flags().StringVarP(&listOpts.search, "search", "s", "",
		"Search in title and description")
	listCmd.Flags().IntVarP(&listOpts.limit, "limit", "n", 0,
		"Maximum number of toasts to print (0=unlimited)")

	// Output flags
	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, dmenu, ids; default from config)")
	listCmd.Flags().StringVar(&listOpts.field, "field", "",
		"Print one field of a single toast (id, title, description, variant, open, duration, action)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Custom Go template for plain and dmenu output")
}

func runList(cmd *cobra.Command, args []string) error {
	if listOpts.open && listOpts.closed {
		return fmt.Errorf("--open and --closed are mutually exclusive")
	}

	opts, err := listFilterOptions()
	if err != nil {
		return err
	}
	var expr *core.FilterExpr
	if listOpts.filter != "" {
		if expr, err = core.ParseFilter(listOpts.filter); err != nil {
			return err
		}
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	toasts, err := client.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to list toasts: %w", err)
	}

	if len(args) == 1 {
		return printOne(cmd, toasts, args[0])
	}

	toasts = applyFilters(toasts, opts, expr, time.Now())
	if len(toasts) == 0 {
		logger.Debug("no toasts to output")
		return nil
	}

	formatter, err := createFormatter(listOpts.format)
	if err != nil {
		return err
	}
	return formatter.Format(cmd.OutOrStdout(), toasts)
}

// listFilterOptions converts the filter flags.
func listFilterOptions() (core.FilterOptions, error) {
	opts := core.FilterOptions{Limit: listOpts.limit}
	if listOpts.variant != "" {
		v, err := model.ParseVariant(listOpts.variant)
		if err != nil {
			return opts, err
		}
		opts.Variant = &v
	}
	switch {
	case listOpts.open:
		opts.Open = model.Ptr(true)
	case listOpts.closed:
		opts.Open = model.Ptr(false)
	}
	return opts, nil
}

// applyFilters narrows toasts by expression, search term and options. The
// limit applies last.
func applyFilters(toasts []model.Toast, opts core.FilterOptions, expr *core.FilterExpr, now time.Time) []model.Toast {
	if expr != nil {
		toasts = core.FilterWithExpr(toasts, expr, now)
	}
	toasts = core.Search(toasts, listOpts.search)
	return core.Filter(toasts, opts)
}

// printOne prints a single toast, as JSON unless a field or format is set.
func printOne(cmd *cobra.Command, toasts []model.Toast, ref string) error {
	id, ok := core.Resolve(toasts, ref)
	if !ok {
		return fmt.Errorf("toast %s not found", ref)
	}
	t := core.LookupByID(toasts, id)

	if listOpts.field != "" {
		fmt.Fprintln(cmd.OutOrStdout(), output.FormatField(t, listOpts.field))
		return nil
	}

	format := listOpts.format
	if format == "" {
		format = string(output.FormatJSON)
	}
	formatter, err := createFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(cmd.OutOrStdout(), []model.Toast{*t})
}

// createFormatter creates the output formatter, falling back to the
// configured default format.
func createFormatter(name string) (output.Formatter, error) {
	if name == "" && cfg != nil {
		name = cfg.Output.Format
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = listOpts.template
	opts.Theme = getTheme()
	return output.NewFormatter(format, opts)
}
