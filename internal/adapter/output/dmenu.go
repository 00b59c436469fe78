package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/toastq/internal/model"
)

// DmenuFormatter writes one line per toast for dmenu, rofi or fuzzel.
// The first field is the 1-based index so a selection can be fed back to
// toastctl as "#N".
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) (*DmenuFormatter, error) {
	tmpl, err := parseTemplate("dmenu", opts.Template)
	if err != nil {
		return nil, err
	}
	return &DmenuFormatter{opts: opts, template: tmpl}, nil
}

// Format writes toasts in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, toasts []model.Toast) error {
	for i := range toasts {
		line, err := f.formatLine(i+1, &toasts[i])
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatLine renders "index | time | icon title: description".
func (f *DmenuFormatter) formatLine(index int, t *model.Toast) (string, error) {
	th := f.opts.theme()
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, t, th)); err != nil {
			return "", err
		}
		return sanitize(buf.String(), 0), nil
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		parts = append(parts, t.RelativeTime())
	}

	content := t.Title
	if f.opts.ShowIcon {
		content = th.For(t.Variant).Icon + " " + content
	}
	if desc := sanitize(t.Description, f.opts.DescMaxLen); desc != "" {
		content += ": " + desc
	}
	parts = append(parts, content)

	return strings.Join(parts, sep), nil
}
