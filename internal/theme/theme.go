package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/model"
)

// Presentation describes how one variant is shown.
type Presentation struct {
	Icon       string
	Label      string
	Foreground string // ANSI colour number or hex
	Background string // empty for the terminal default
}

var builtin = map[model.Variant]Presentation{
	model.VariantDefault:     {Icon: "•", Label: "notice", Foreground: "12"},
	model.VariantDestructive: {Icon: "✗", Label: "error", Foreground: "9"},
	model.VariantSuccess:     {Icon: "✓", Label: "success", Foreground: "10"},
	model.VariantWarning:     {Icon: "!", Label: "warning", Foreground: "11"},
	model.VariantInfo:        {Icon: "i", Label: "info", Foreground: "14"},
}

// For returns the built-in presentation of v. Unknown variants are shown as
// the default variant.
func For(v model.Variant) Presentation {
	return builtin[v.Normalize()]
}

// Theme is the built-in presentation with per-variant overrides applied.
type Theme struct {
	variants map[model.Variant]Presentation
}

// Default returns the built-in theme.
func Default() *Theme {
	return New(nil)
}

// New builds a theme from config overrides. Empty override fields keep the
// built-in value; overrides for unknown variants are ignored.
func New(overrides map[string]config.VariantStyle) *Theme {
	t := &Theme{variants: make(map[model.Variant]Presentation, len(builtin))}
	for v, p := range builtin {
		t.variants[v] = p
	}

	for name, o := range overrides {
		v := model.Variant(name)
		p, ok := t.variants[v]
		if !ok {
			continue
		}
		if o.Icon != "" {
			p.Icon = o.Icon
		}
		if o.Label != "" {
			p.Label = o.Label
		}
		if o.Foreground != "" {
			p.Foreground = o.Foreground
		}
		if o.Background != "" {
			p.Background = o.Background
		}
		t.variants[v] = p
	}
	return t
}

// For returns the presentation of v in this theme.
func (t *Theme) For(v model.Variant) Presentation {
	return t.variants[v.Normalize()]
}

// Style returns a bold lipgloss style in the variant's colours.
func (t *Theme) Style(v model.Variant) lipgloss.Style {
	p := t.For(v)
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Foreground))
	if p.Background != "" {
		style = style.Background(lipgloss.Color(p.Background))
	}
	return style
}

// Badge renders the variant's icon and label, e.g. "✓ success".
func (t *Theme) Badge(v model.Variant) string {
	p := t.For(v)
	return t.Style(v).Render(p.Icon + " " + p.Label)
}
