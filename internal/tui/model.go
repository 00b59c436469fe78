// Package tui provides the BubbleTea-based watch view for the toast queue.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/toastq/internal/core"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/theme"
)

// actionTimeout bounds each call the view makes to the daemon.
const actionTimeout = 5 * time.Second

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeSearch
	ModeHelp
)

// Client is the part of a daemon client the view drives.
type Client interface {
	Dismiss(ctx context.Context, id string) error
	DismissAll(ctx context.Context) error
	Remove(ctx context.Context, id string) error
}

// Options configures the watch view.
type Options struct {
	Client Client
	// Updates delivers the full queue state whenever it changes. The view
	// never polls; a closed channel means the daemon went away.
	Updates  <-chan []model.Toast
	Theme    *theme.Theme
	ShowHelp bool
}

// Model is the main TUI model.
type Model struct {
	client  Client
	updates <-chan []model.Toast
	theme   *theme.Theme

	mode Mode

	// Components
	list        list.Model
	viewport    viewport.Model
	searchInput textinput.Model
	help        help.Model

	// State
	toasts       []model.Toast
	selectedID   string
	searchQuery  string
	hideClosed   bool
	showHelp     bool
	disconnected bool
	width        int
	height       int
	ready        bool

	keys KeyMap

	statusMsg string
	statusErr bool
}

// toastItem wraps a toast for the list component.
type toastItem struct {
	toast model.Toast
	theme *theme.Theme
}

func (i toastItem) Title() string {
	if i.toast.Title == "" {
		return "(untitled)"
	}
	return i.toast.Title
}

func (i toastItem) Description() string {
	parts := []string{"#" + i.toast.ID, i.toast.RelativeTime()}
	if i.toast.Persistent() {
		parts = append(parts, "sticky")
	}
	if i.toast.Description != "" {
		parts = append(parts, i.toast.Description)
	}
	return strings.Join(parts, " · ")
}

func (i toastItem) FilterValue() string {
	return i.toast.Title + " " + i.toast.Description
}

// toastDelegate renders a variant badge before each title and dims toasts
// that have been dismissed but not yet removed.
type toastDelegate struct {
	list.DefaultDelegate
}

func newToastDelegate() toastDelegate {
	return toastDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

func (d toastDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(toastItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	isSelected := index == m.Index()
	styles := d.DefaultDelegate.Styles

	titleStyle, descStyle := styles.NormalTitle, styles.NormalDesc
	if isSelected {
		titleStyle, descStyle = styles.SelectedTitle, styles.SelectedDesc
	}
	if !ti.toast.Open {
		titleStyle = titleStyle.Foreground(lipgloss.Color("8"))
		descStyle = descStyle.Foreground(lipgloss.Color("8"))
	}

	itemWidth := m.Width() - styles.NormalTitle.GetHorizontalPadding()
	p := ti.theme.For(ti.toast.Variant)
	badge := ti.theme.Style(ti.toast.Variant).Render(p.Icon)
	if !ti.toast.Open {
		badge = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(p.Icon)
	}

	// The badge takes the icon cell plus one space.
	title := truncate(ti.Title(), itemWidth-2)
	desc := truncate(ti.Description(), itemWidth)

	fmt.Fprint(w, titleStyle.Render(badge+" "+title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

// truncate shortens s to width runes, ending in an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// New creates a new TUI model.
func New(opts Options) Model {
	th := opts.Theme
	if th == nil {
		th = theme.Default()
	}

	l := list.New(nil, newToastDelegate(), 0, 0)
	l.Title = "Toasts"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 100

	return Model{
		client:      opts.Client,
		updates:     opts.Updates,
		theme:       th,
		mode:        ModeList,
		list:        l,
		searchInput: searchInput,
		help:        help.New(),
		keys:        DefaultKeyMap(),
		showHelp:    opts.ShowHelp,
	}
}

// Init starts listening for queue state.
func (m Model) Init() tea.Cmd {
	return m.waitForState
}

type stateMsg []model.Toast

type disconnectedMsg struct{}

// waitForState blocks until the next queue state arrives.
func (m Model) waitForState() tea.Msg {
	if m.updates == nil {
		return nil
	}
	toasts, ok := <-m.updates
	if !ok {
		return disconnectedMsg{}
	}
	return stateMsg(toasts)
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		if t := m.selected(); t != nil && m.mode == ModeDetail {
			m.viewport.SetContent(m.renderDetail(*t))
		}
		return m, nil

	case stateMsg:
		m.toasts = []model.Toast(msg)
		m.list.SetItems(m.buildListItems())
		if m.mode == ModeDetail {
			if t := m.selected(); t != nil {
				m.viewport.SetContent(m.renderDetail(*t))
			} else {
				m.mode = ModeList
				m.selectedID = ""
				return m, m.waitForState
			}
		}
		return m, m.waitForState

	case disconnectedMsg:
		m.disconnected = true
		m.statusMsg = "Lost connection to toastd"
		m.statusErr = true
		return m, nil

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		if m.disconnected {
			m.statusMsg = "Lost connection to toastd"
			m.statusErr = true
			return m, nil
		}
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied "+msg.what+" to clipboard", false)
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	case ModeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	}
	return m, cmd
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// call runs op against the daemon off the UI goroutine. The new state
// arrives through the watch channel, so only the outcome is reported.
func (m Model) call(done string, op func(ctx context.Context) error) tea.Cmd {
	if m.client == nil {
		return status("Not connected to toastd", true)
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := op(ctx); err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		return statusMsg{text: done}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Printable keys belong to the search box while it is focused.
	if m.mode == ModeSearch {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m, nil
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.list.SelectedItem().(toastItem); ok {
			m.openDetail(item.toast)
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if item, ok := m.list.SelectedItem().(toastItem); ok {
			return m, copyText("toast", clipboardText(item.toast))
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyAllJSON), key.Matches(msg, m.keys.CopyAllYAML):
		asYAML := key.Matches(msg, m.keys.CopyAllYAML)
		text, err := marshalToasts(m.visibleToasts(), asYAML)
		if err != nil {
			return m, status("Failed to encode toasts: "+err.Error(), true)
		}
		what := "toasts as JSON"
		if asYAML {
			what = "toasts as YAML"
		}
		return m, copyText(what, text)

	case key.Matches(msg, m.keys.Dismiss):
		if item, ok := m.list.SelectedItem().(toastItem); ok {
			return m, m.dismiss(item.toast.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Remove):
		if item, ok := m.list.SelectedItem().(toastItem); ok {
			return m, m.remove(item.toast.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.DismissAll):
		return m, m.call("All toasts dismissed", func(ctx context.Context) error {
			return m.client.DismissAll(ctx)
		})

	case key.Matches(msg, m.keys.ToggleClosed):
		m.hideClosed = !m.hideClosed
		m.list.SetItems(m.buildListItems())
		if m.hideClosed {
			return m, status("Hiding dismissed toasts", false)
		}
		return m, status("Showing dismissed toasts", false)

	case key.Matches(msg, m.keys.Search):
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.list.SetItems(m.buildListItems())
		m.mode = ModeSearch
		m.searchInput.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleDetailKey handles keys in detail mode.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		m.selectedID = ""
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if t := m.selected(); t != nil {
			return m, copyText("toast", clipboardText(*t))
		}
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.selectedID != "" {
			return m, m.dismiss(m.selectedID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Remove):
		if m.selectedID != "" {
			return m, m.remove(m.selectedID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSearchKey handles keys in search mode.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.list.SetItems(m.buildListItems())
		return m, nil

	case tea.KeyEnter:
		if item, ok := m.list.SelectedItem().(toastItem); ok {
			m.searchInput.Blur()
			m.openDetail(item.toast)
		}
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	m.searchQuery = m.searchInput.Value()
	m.list.SetItems(m.buildListItems())

	return m, cmd
}

func (m Model) dismiss(id string) tea.Cmd {
	return m.call("Toast #"+id+" dismissed", func(ctx context.Context) error {
		return m.client.Dismiss(ctx, id)
	})
}

func (m Model) remove(id string) tea.Cmd {
	return m.call("Toast #"+id+" removed", func(ctx context.Context) error {
		return m.client.Remove(ctx, id)
	})
}

func (m *Model) openDetail(t model.Toast) {
	m.selectedID = t.ID
	m.mode = ModeDetail
	m.viewport.SetContent(m.renderDetail(t))
	m.viewport.GotoTop()
}

// selected returns the toast shown in detail mode from the latest state.
func (m Model) selected() *model.Toast {
	if m.selectedID == "" {
		return nil
	}
	return core.LookupByID(m.toasts, m.selectedID)
}

// visibleToasts returns the toasts the list currently shows.
func (m Model) visibleToasts() []model.Toast {
	toasts := m.toasts
	if m.hideClosed {
		var open []model.Toast
		for _, t := range toasts {
			if t.Open {
				open = append(open, t)
			}
		}
		toasts = open
	}
	return core.Search(toasts, m.searchQuery)
}

// buildListItems creates list items from the current state.
func (m Model) buildListItems() []list.Item {
	toasts := m.visibleToasts()
	items := make([]list.Item, len(toasts))
	for i, t := range toasts {
		items[i] = toastItem{toast: t, theme: m.theme}
	}
	return items
}

// renderDetail renders the detail view for a toast.
func (m Model) renderDetail(t model.Toast) string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	title := t.Title
	if title == "" {
		title = "(untitled)"
	}
	b.WriteString(headerStyle.Render(title) + "\n\n")

	state := "open"
	if !t.Open {
		state = "dismissed"
	}
	duration := "sticky"
	if !t.Persistent() {
		duration = t.DurationTime().String()
	}

	b.WriteString(labelStyle.Render("ID: ") + t.ID + "\n")
	b.WriteString(labelStyle.Render("Variant: ") + m.theme.Badge(t.Variant) + "\n")
	b.WriteString(labelStyle.Render("State: ") + state + "\n")
	b.WriteString(labelStyle.Render("Duration: ") + duration + "\n")
	b.WriteString(labelStyle.Render("Created: ") + t.RelativeTime() + "\n")
	if t.Action != nil {
		b.WriteString(labelStyle.Render("Action: ") + t.Action.Label + " (" + t.Action.Key + ")\n")
	}

	if t.Description != "" {
		b.WriteString("\n" + labelStyle.Render("Description:") + "\n")
		b.WriteString(t.Description + "\n")
	}

	return b.String()
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeSearch:
		return m.viewSearch()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

// footer shows the status message, or the mode's key bar when help is on.
func (m Model) footer(keys help.KeyMap) string {
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("9"))
		}
		return style.Render(m.statusMsg)
	}
	if !m.showHelp {
		return ""
	}
	return m.help.View(keys)
}

func (m Model) viewList() string {
	return m.list.View() + "\n" + m.footer(m.keys)
}

func (m Model) viewDetail() string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render("Toast Detail")
	return header + "\n" + m.viewport.View() + "\n" + m.footer(m.keys.detailHelp())
}

func (m Model) viewSearch() string {
	count := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).
		Render(fmt.Sprintf("(%d matches)", len(m.list.Items())))
	searchBar := "Search: " + m.searchInput.View() + " " + count
	return searchBar + "\n" + m.list.View() + "\n" + m.footer(m.keys.searchHelp())
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)

	h := m.help
	h.ShowAll = true

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += h.View(m.keys) + "\n\n"
	s += lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Press ? or esc to return")
	return s
}

// Run starts the watch view and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
