// Package output provides output formatters for toast snapshots.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/theme"
)

// Formatter formats toasts for output.
type Formatter interface {
	// Format writes formatted toasts to the writer.
	Format(w io.Writer, toasts []model.Toast) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// FormatTypes lists every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (FormatType, error) {
	for _, f := range FormatTypes() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (use plain, json, yaml, dmenu or ids)", s)
}

// NewFormatter creates a formatter for the specified format type.
// An invalid template is reported here rather than at Format time.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatIDs:
		return NewIDsFormatter(), nil
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatPlain, "":
		return NewPlainFormatter(opts)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures the text formatters.
type FormatterOptions struct {
	Template    string // Custom template for dmenu/plain format
	ShowIndex   bool   // Show 1-based index prefix
	ShowTime    bool   // Show relative time
	ShowIcon    bool   // Show the variant icon
	DescMaxLen  int    // Maximum description length (0 = unlimited)
	Separator   string // Field separator for dmenu format
	Theme       *theme.Theme
	IncludeDesc bool // Include the description line in plain output
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:   true,
		ShowTime:    true,
		ShowIcon:    true,
		DescMaxLen:  80,
		Separator:   " | ",
		IncludeDesc: true,
	}
}

func (o FormatterOptions) theme() *theme.Theme {
	if o.Theme == nil {
		return theme.Default()
	}
	return o.Theme
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Toast        *model.Toast
	Icon         string
	Label        string
	RelativeTime string
}

func newTemplateData(index int, t *model.Toast, th *theme.Theme) templateData {
	p := th.For(t.Variant)
	return templateData{
		Index:        index,
		Toast:        t,
		Icon:         p.Icon,
		Label:        p.Label,
		RelativeTime: t.RelativeTime(),
	}
}

// parseTemplate compiles a custom template, or returns nil for "".
func parseTemplate(name, text string) (*template.Template, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", name, err)
	}
	return tmpl, nil
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"upper":    strings.ToUpper,
		"state": func(open bool) string {
			if open {
				return "open"
			}
			return "closed"
		},
	}
}

// truncate shortens s to maxLen bytes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// sanitize collapses whitespace for single-line display and truncates.
func sanitize(s string, maxLen int) string {
	return truncate(strings.Join(strings.Fields(s), " "), maxLen)
}
