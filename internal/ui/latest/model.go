package latest

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/theme"
	"github.com/nhle/notification-inbox/internal/ui/inboxlist"
)

// SelectedMsg is sent when a notification is opened from the panel.
type SelectedMsg struct {
	ID string
}

// MarkAllMsg asks for every notification to be marked read.
type MarkAllMsg struct{}

// CloseMsg signals the parent to close the panel.
type CloseMsg struct{}

// Model is the compact panel of the most recent notifications.
type Model struct {
	keys   *keys.KeyMap
	limit  int
	items  []model.Notification
	unread int
	total  int
	cursor int
	width  int
	height int
}

// New creates a panel showing up to limit notifications.
func New(k *keys.KeyMap, limit, width, height int) Model {
	return Model{keys: k, limit: limit, width: width, height: height}
}

// SetRecords re-derives the panel from the full record set. The cursor
// stays on the same notification when it is still listed.
func (m *Model) SetRecords(records []model.Notification) {
	selected := ""
	if m.cursor < len(m.items) {
		selected = m.items[m.cursor].ID
	}

	m.items = projection.Latest(records, m.limit)
	m.unread = projection.UnreadCount(records)
	m.total = len(records)

	m.cursor = 0
	for i, n := range m.items {
		if n.ID == selected {
			m.cursor = i
			break
		}
	}
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(km, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, m.keys.Select):
		if m.cursor < len(m.items) {
			id := m.items[m.cursor].ID
			return m, func() tea.Msg { return SelectedMsg{ID: id} }
		}
	case key.Matches(km, m.keys.MarkAll):
		if m.unread > 0 {
			return m, func() tea.Msg { return MarkAllMsg{} }
		}
	case key.Matches(km, m.keys.Back), key.Matches(km, m.keys.Latest):
		return m, func() tea.Msg { return CloseMsg{} }
	}
	return m, nil
}

// View renders the panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	header := titleStyle.Render("Latest")
	if m.unread > 0 {
		header += " " + theme.BadgeStyle.Render(fmt.Sprintf("%d unread", m.unread))
	}

	lines := []string{header, ""}
	if len(m.items) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("No notifications yet."))
	}
	for i, n := range m.items {
		lines = append(lines, inboxlist.RenderLine(n, i == m.cursor))
	}

	footer := fmt.Sprintf("Showing %d of %d", len(m.items), m.total)
	if m.unread > 0 {
		footer += " · A mark all as read"
	}
	lines = append(lines, "", theme.HelpStyle.Render(footer))

	w := m.width - 4
	if w > 100 {
		w = 100
	}
	return theme.DetailPanelStyle.
		Width(w).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
