package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/toastq/internal/model"
)

// IDsFormatter outputs just the toast ids, one per line.
// Useful for piping to other commands (e.g. toastctl dismiss).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes toast ids to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, toasts []model.Toast) error {
	for _, t := range toasts {
		if _, err := fmt.Fprintln(w, t.ID); err != nil {
			return err
		}
	}
	return nil
}
