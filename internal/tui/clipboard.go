package tui

import (
	"encoding/json"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastq/internal/model"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

type copyResultMsg struct {
	what string
	err  error
}

// copyText copies text to the system clipboard.
func copyText(what, text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{what: what, err: writeClipboard(text)}
	}
}

// clipboardText is what "copy" puts on the clipboard for one toast.
func clipboardText(t model.Toast) string {
	switch {
	case t.Title == "":
		return t.Description
	case t.Description == "":
		return t.Title
	default:
		return t.Title + "\n" + t.Description
	}
}

func marshalToasts(toasts []model.Toast, asYAML bool) (string, error) {
	if toasts == nil {
		toasts = []model.Toast{}
	}
	if asYAML {
		data, err := yaml.Marshal(toasts)
		return string(data), err
	}
	data, err := json.MarshalIndent(toasts, "", "  ")
	return string(data), err
}
