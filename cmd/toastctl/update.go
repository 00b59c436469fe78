package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/model"
)

var updateOpts toastFlags

var updateCmd = &cobra.Command{
	Use:   "update <id|#index>",
	Short: "Change a toast in place",
	Long: `Change fields of a toast that is still in the queue. Only the flags
given are changed. --clear-action removes the toast's action. The
auto-dismiss timer keeps running from when the toast was raised.

Examples:
  # Turn a progress toast into a result
  id=$(toastctl info "Uploading...")
  toastctl update "$id" --title "Upload complete" --variant success`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateOpts.title, "title", "", "New title")
	updateCmd.Flags().StringVarP(&updateOpts.description, "description", "d", "", "New description")
	updateCmd.Flags().StringVar(&updateOpts.variant, "variant", "",
		"New variant (default, destructive, success, warning, info)")
	addCommonToastFlags(updateCmd, &updateOpts)
	updateCmd.Flags().BoolVar(&updateOpts.clearAction, "clear-action", false, "Remove the toast's action")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	patch, err := patchFromFlags(cmd, &updateOpts)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return fmt.Errorf("nothing to update: pass at least one field flag")
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	ids, err := resolveRefs(ctx, client, args)
	if err != nil {
		return err
	}
	if err := client.Update(ctx, ids[0], patch); err != nil {
		return fmt.Errorf("failed to update toast %s: %w", ids[0], err)
	}
	return nil
}

// patchFromFlags builds a Patch from the flags that were set explicitly. An
// explicit empty description clears it; an absent flag keeps it.
func patchFromFlags(cmd *cobra.Command, f *toastFlags) (model.Patch, error) {
	changed := cmd.Flags().Changed

	var patch model.Patch
	if changed("title") {
		patch.Title = model.Ptr(f.title)
	}
	if changed("description") {
		patch.Description = model.Ptr(f.description)
	}
	if changed("variant") {
		v, err := model.ParseVariant(f.variant)
		if err != nil {
			return model.Patch{}, err
		}
		patch.Variant = &v
	}
	if changed("duration") {
		ms, err := parseDurationMs(f.duration)
		if err != nil {
			return model.Patch{}, err
		}
		patch.Duration = &ms
	}
	if changed("action-key") {
		patch.Action = &model.Action{Key: f.actionKey, Label: f.actionLabel}
	} else if changed("action-label") {
		return model.Patch{}, fmt.Errorf("--action-label needs --action-key")
	}
	if changed("clear-action") {
		if patch.Action != nil {
			return model.Patch{}, fmt.Errorf("--clear-action and --action-key are mutually exclusive")
		}
		patch.ClearAction = f.clearAction
	}
	return patch, nil
}
