package inboxlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/theme"
)

// SelectedMsg is sent when a user opens a notification.
type SelectedMsg struct {
	ID string
}

// ToggleReadMsg asks for the selected notification's read flag to flip.
type ToggleReadMsg struct {
	ID string
}

// DeleteMsg asks for the selected notification to be deleted.
type DeleteMsg struct {
	ID string
}

// MarkAllMsg asks for every notification to be marked read.
type MarkAllMsg struct{}

// Model is the notification center: the filtered, searchable list.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	records     []model.Notification
	filter      projection.Filter
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new notification center model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		filter:      projection.Filter{Type: projection.TypeAll},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetRecords replaces the records the list projects from, keeping the
// cursor on the same notification when it is still visible.
func (m *Model) SetRecords(records []model.Notification) tea.Cmd {
	m.records = records
	return m.apply()
}

// Filter returns the active filter.
func (m Model) Filter() projection.Filter {
	return m.filter
}

// SetFilterType switches the type filter to typ.
func (m *Model) SetFilterType(typ string) tea.Cmd {
	m.filter.Type = typ
	return m.apply()
}

// TogglePrioritySort flips priority-first ordering.
func (m *Model) TogglePrioritySort() tea.Cmd {
	m.filter.SortByPriority = !m.filter.SortByPriority
	return m.apply()
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// apply re-projects the records through the filter into list items.
func (m *Model) apply() tea.Cmd {
	selected := ""
	if item, ok := m.list.SelectedItem().(NotificationItem); ok {
		selected = item.Notification.ID
	}

	visible := projection.Filtered(m.records, m.filter)
	items := make([]list.Item, len(visible))
	cursor := 0
	for i, n := range visible {
		items[i] = NotificationItem{Notification: n}
		if n.ID == selected {
			cursor = i
		}
	}

	m.list.Title = m.title()
	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(cursor)
	}
	return cmd
}

func (m Model) title() string {
	t := "Notifications · " + projection.FilterLabel(m.filter.Type)
	if m.filter.SortByPriority {
		t += " · by priority"
	}
	if m.filter.Search != "" {
		t += fmt.Sprintf(" · %q", m.filter.Search)
	}
	return t
}

// Update handles messages for the notification center.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode. The list
// narrows as the query is typed.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.filter.Search = ""
		return m, m.apply()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() != m.filter.Search {
		m.filter.Search = m.searchInput.Value()
		return m, tea.Batch(cmd, m.apply())
	}
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if id, ok := m.selectedID(); ok {
			return m, func() tea.Msg { return SelectedMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleRead):
		if id, ok := m.selectedID(); ok {
			return m, func() tea.Msg { return ToggleReadMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.selectedID(); ok {
			return m, func() tea.Msg { return DeleteMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkAll):
		return m, func() tea.Msg { return MarkAllMsg{} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Search)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleType):
		return m, m.SetFilterType(projection.NextFilterType(m.filter.Type))

	case key.Matches(msg, m.keys.PrioritySort):
		return m, m.TogglePrioritySort()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) selectedID() (string, bool) {
	item, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return "", false
	}
	return item.Notification.ID, true
}

// View renders the notification center.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when nothing is visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if len(m.records) > 0 && !m.filter.IsZero() {
		return style.Render("No notifications found matching your criteria.")
	}
	return style.Render("No notifications yet.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
