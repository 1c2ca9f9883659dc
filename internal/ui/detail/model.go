package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// ActionMsg signals the parent to execute an action on the shown
// notification.
type ActionMsg struct {
	Action string
	ID     string
}

// Actions carried by ActionMsg.
const (
	ActionToggleRead = "toggle_read"
	ActionDelete     = "delete"
)

// Model is the notification detail view component. It shows whatever the
// parent last passed to SetNotification for the open id, so later store
// changes (read confirmation, deletion) show up while it is open.
type Model struct {
	id           string
	notification *model.Notification
	removed      bool
	commandErr   string
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// ID returns the id of the open notification.
func (m Model) ID() string {
	return m.id
}

// Open starts showing n.
func (m *Model) Open(n model.Notification) {
	m.id = n.ID
	m.commandErr = ""
	m.SetNotification(n, true)
	m.viewport.GotoTop()
}

// SetNotification refreshes the shown record. found is false once the
// record has left the store.
func (m *Model) SetNotification(n model.Notification, found bool) {
	if !found {
		m.notification = nil
		m.removed = true
	} else {
		m.notification = &n
		m.removed = false
	}
	m.viewport.SetContent(m.renderContent())
}

// SetCommandError shows a failed command below the record.
func (m *Model) SetCommandError(msg string) {
	m.commandErr = msg
	m.viewport.SetContent(m.renderContent())
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.ToggleRead):
			if m.notification != nil {
				id := m.id
				return m, func() tea.Msg {
					return ActionMsg{Action: ActionToggleRead, ID: id}
				}
			}

		case key.Matches(msg, m.keys.Delete):
			if m.notification != nil {
				id := m.id
				return m, func() tea.Msg {
					return ActionMsg{Action: ActionDelete, ID: id}
				}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		text := "No notification selected"
		if m.removed {
			text = "This notification was deleted."
		}
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(text)
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}

	n := m.notification
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(n.Title))

	status := "Unread"
	if n.IsRead {
		status = "Read"
	}
	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.TypeStyle(n.Type).Render(projection.TypeLabel(n.Type)),
		"  ",
		theme.ReadStyle(n.IsRead).Render(status),
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-10s", label+":")), valStyle.Render(value))
	}

	if !n.CreatedAt.IsZero() {
		sections = append(sections, row("Received", n.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	if n.Priority != model.PriorityNone {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-10s", "Priority:")),
			theme.PriorityStyle(n.Priority).Render(strings.ToUpper(string(n.Priority))),
		))
	}
	if n.Link != "" {
		sections = append(sections, row("Link", n.Link))
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Message"))
	body := n.Message
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No message")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-4, 10)).Render(body))

	if n.PriorityReason != "" {
		sections = append(sections, "", headerStyle.Render("Why this priority"), n.PriorityReason)
	}

	if len(n.SuggestedActions) > 0 {
		sections = append(sections, "", headerStyle.Render("Suggested actions"))
		for _, a := range n.SuggestedActions {
			sections = append(sections, "  • "+a)
		}
	}

	if m.commandErr != "" {
		sections = append(sections, "", theme.ErrorStyle.Render(m.commandErr))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
