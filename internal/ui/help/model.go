package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/theme"
	"github.com/nhle/notification-inbox/internal/ui/command"
)

// section is one titled group of bindings in the overlay.
type section struct {
	title    string
	bindings []key.Binding
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// sections groups the inbox bindings by what they act on. Intents that
// change a notification live apart from the ones that only change the view.
func (m Model) sections() []section {
	k := m.keys
	return []section{
		{"Navigate", []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Help, k.Quit}},
		{"Notifications", []key.Binding{k.ToggleRead, k.Delete, k.MarkAll, k.Refresh}},
		{"Filter & Sort", []key.Binding{k.Search, k.CycleType, k.PrioritySort}},
		{"Views", []key.Binding{k.Latest, k.Profile, k.Settings, k.Command}},
		{"Session", []key.Binding{k.Logout}},
	}
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	headingStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBlue)

	m.help.Width = m.width - 4
	blocks := []string{titleStyle.Render("Inbox Shortcuts")}
	for _, s := range m.sections() {
		blocks = append(blocks,
			headingStyle.Render(s.title),
			m.help.ShortHelpView(s.bindings),
			"")
	}
	blocks = append(blocks, filterLegend(), paletteLegend(), signInLegend())

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

// filterLegend lists the order the type filter cycles through.
func filterLegend() string {
	labels := make([]string, 0, len(projection.FilterTypes()))
	for _, t := range projection.FilterTypes() {
		labels = append(labels, projection.FilterLabel(t))
	}
	return theme.HelpStyle.Render("Type filter: " + strings.Join(labels, " → "))
}

func paletteLegend() string {
	return theme.HelpStyle.Render("Commands (:): " + strings.Join(command.Names(), ", "))
}

func signInLegend() string {
	return theme.HelpStyle.Render("Sign-in screen: ctrl+r switches between sign in and register")
}
