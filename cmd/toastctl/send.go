package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastq/internal/event"
)

// eventSender is implemented by clients that forward envelopes as-is, so
// the daemon does the validation.
type eventSender interface {
	SendEvent(ctx context.Context, env event.Envelope) (string, error)
}

var sendCmd = &cobra.Command{
	Use:   "send [file|-|json]",
	Short: "Send a show-toast event envelope",
	Long: `Send a host event envelope to toastd and print the raised toast's id.

The envelope is read from the argument, from a file, or from stdin when
the argument is "-" or missing:

  {"event": "show-toast", "payload": {"title": "Saved", "variant": "success"}}

Examples:
  toastctl send '{"event":"show-toast","payload":{"title":"Hi"}}'
  echo '{"event":"show-toast","payload":{"title":"Hi"}}' | toastctl send`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	data, err := readEnvelope(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var env event.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", event.ErrInvalidPayload, err)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var id string
	if sender, ok := client.(eventSender); ok {
		id, err = sender.SendEvent(ctx, env)
	} else {
		id, err = sendDecoded(ctx, client, env)
	}
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// sendDecoded validates the envelope locally and raises its toast.
func sendDecoded(ctx context.Context, client daemonClient, env event.Envelope) (string, error) {
	spec, err := env.Spec()
	if err != nil {
		return "", err
	}
	return client.Show(ctx, spec)
}

func readEnvelope(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	arg := args[0]
	if strings.HasPrefix(strings.TrimSpace(arg), "{") {
		return []byte(arg), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	return data, nil
}
