package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/core"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/theme"
)

var statusOpts struct {
	all bool // Count toasts that are closing as well
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the toast queue in Waybar's custom module JSON format.

By default only open toasts are counted. Use --all to include toasts that
were dismissed and are about to leave the queue.

  "custom/toasts": {
    "exec": "toastctl status",
    "interval": 2,
    "return-type": "json",
    "on-click": "toastctl watch"
  }

The output includes:
  - text: number of toasts
  - alt/class: the most severe variant present (destructive, warning,
    success, info, default) or "empty"
  - tooltip: counts per variant`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.all, "all", false,
		"Include dismissed toasts that are still closing")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return outputStatus(cmd.OutOrStdout(), WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	toasts, err := client.Snapshot(ctx)
	if err != nil {
		return outputStatus(cmd.OutOrStdout(), WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}

	return outputStatus(cmd.OutOrStdout(), generateStatus(toasts, statusOpts.all, getTheme()))
}

// severity orders variants from most to least attention-grabbing.
var severity = []model.Variant{
	model.VariantDestructive,
	model.VariantWarning,
	model.VariantSuccess,
	model.VariantInfo,
	model.VariantDefault,
}

// generateStatus summarises the queue for Waybar.
func generateStatus(toasts []model.Toast, includeClosed bool, th *theme.Theme) WaybarStatus {
	if !includeClosed {
		toasts = core.Filter(toasts, core.FilterOptions{Open: model.Ptr(true)})
	}
	if len(toasts) == 0 {
		return WaybarStatus{Text: "", Alt: "empty", Class: "empty"}
	}

	counts := core.CountByVariant(toasts)

	class := string(model.VariantDefault)
	var lines []string
	for _, v := range severity {
		n := counts[v]
		if n == 0 {
			continue
		}
		if len(lines) == 0 {
			class = string(v)
		}
		p := th.For(v)
		lines = append(lines, fmt.Sprintf("%s %s: %d", p.Icon, p.Label, n))
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(toasts)),
		Alt:        class,
		Tooltip:    strings.Join(lines, "\n"),
		Class:      class,
		Percentage: min(len(toasts), 100),
	}
}

// outputStatus writes the status as JSON.
func outputStatus(w io.Writer, status WaybarStatus) error {
	return json.NewEncoder(w).Encode(status)
}
