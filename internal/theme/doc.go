// Package theme maps toast variants to their presentation: an icon, a short
// label and a colour pair. The lookup is pure; renderers such as the watch
// view turn a Presentation into a lipgloss style.
package theme
