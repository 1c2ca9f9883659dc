package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/theme"
)

// Command names understood by the palette.
const (
	Reload   = "reload"
	ReadAll  = "read-all"
	Filter   = "filter"
	Priority = "priority"
	Latest   = "latest"
	Profile  = "profile"
	Settings = "settings"
	Logout   = "logout"
	Quit     = "quit"
)

var aliases = map[string]string{
	"refresh":  Reload,
	"sync":     Reload,
	"markall":  ReadAll,
	"readall":  ReadAll,
	"f":        Filter,
	"sort":     Priority,
	"new":      Latest,
	"password": Profile,
	"config":   Settings,
	"signout":  Logout,
	"q":        Quit,
}

var names = []string{Reload, ReadAll, Filter, Priority, Latest, Profile, Settings, Logout, Quit}

// Names lists the canonical command names in palette order.
func Names() []string {
	return append([]string(nil), names...)
}

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Name string
	Arg  string
}

// Parse resolves a palette line into a command. Filter takes one of the
// projection filter types as its argument.
func Parse(line string) (CommandMsg, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	name := fields[0]
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	known := false
	for _, n := range names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return CommandMsg{}, fmt.Errorf("unknown command %q", fields[0])
	}

	cmd := CommandMsg{Name: name}
	if name != Filter {
		if len(fields) > 1 {
			return CommandMsg{}, fmt.Errorf("%s takes no arguments", name)
		}
		return cmd, nil
	}

	if len(fields) != 2 {
		return CommandMsg{}, fmt.Errorf("usage: filter <%s>", strings.Join(projection.FilterTypes(), "|"))
	}
	for _, t := range projection.FilterTypes() {
		if t == fields[1] {
			cmd.Arg = t
			return cmd, nil
		}
	}
	return CommandMsg{}, fmt.Errorf("unknown notification type %q", fields[1])
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	errMsg string
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		cmd, err := Parse(line)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.input.Reset()
		return m, func() tea.Msg { return cmd }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.errMsg != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errMsg))
	}
	parts = append(parts, "", theme.HelpStyle.Render(strings.Join(names, "  ")))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.errMsg = ""
	m.input.Reset()
	return m.input.Focus()
}
