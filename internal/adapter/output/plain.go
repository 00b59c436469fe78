package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/toastq/internal/model"
)

// PlainFormatter formats toasts as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	tmpl, err := parseTemplate("plain", opts.Template)
	if err != nil {
		return nil, err
	}
	return &PlainFormatter{opts: opts, template: tmpl}, nil
}

// Format writes toasts as plain text, newest first.
func (f *PlainFormatter) Format(w io.Writer, toasts []model.Toast) error {
	th := f.opts.theme()
	for i := range toasts {
		t := &toasts[i]
		if f.template != nil {
			if err := f.template.Execute(w, newTemplateData(i+1, t, th)); err != nil {
				return err
			}
			continue
		}

		var sb strings.Builder
		if f.opts.ShowIndex {
			fmt.Fprintf(&sb, "[%d] ", i+1)
		}
		if f.opts.ShowIcon {
			sb.WriteString(th.For(t.Variant).Icon + " ")
		}
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		sb.WriteString(title)
		if !t.Open {
			sb.WriteString(" [closed]")
		}
		if f.opts.ShowTime && !t.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, " (%s)", t.RelativeTime())
		}
		sb.WriteString("\n")

		if f.opts.IncludeDesc && t.Description != "" {
			sb.WriteString("    " + sanitize(t.Description, f.opts.DescMaxLen) + "\n")
		}
		if t.Action != nil {
			fmt.Fprintf(&sb, "    action: %s (%s)\n", t.Action.Label, t.Action.Key)
		}

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// FormatField returns one field of a toast as text.
func FormatField(t *model.Toast, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return t.ID
	case "title":
		return t.Title
	case "description", "desc":
		return t.Description
	case "variant":
		return string(t.Variant)
	case "open":
		return fmt.Sprintf("%t", t.Open)
	case "duration":
		return fmt.Sprintf("%d", t.Duration)
	case "action":
		if t.Action == nil {
			return ""
		}
		return t.Action.Key
	case "all", "full":
		return fmt.Sprintf("%s\n%s", t.Title, t.Description)
	default:
		return t.Title
	}
}
