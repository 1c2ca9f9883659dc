package profile

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/theme"
)

// ChangePasswordMsg is dispatched when the user submits the password form.
type ChangePasswordMsg struct {
	Current string
	New     string
	Confirm string
}

// BackMsg signals the parent to leave the profile view.
type BackMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	current string
	next    string
	confirm string
}

// Model shows the account and the change-password form.
type Model struct {
	principal model.Principal
	form      *huh.Form
	fb        *formBindings
	keys      *keys.KeyMap
	message   string
	success   bool
	busy      bool
	width     int
	height    int
}

// New creates a new profile view model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		keys:   k,
		width:  width,
		height: height,
	}
}

// Start opens the profile for principal with an empty form.
func (m *Model) Start(principal model.Principal) tea.Cmd {
	m.principal = principal
	m.message = ""
	return m.reset()
}

// SetResult shows the outcome of a password change and clears the form.
func (m *Model) SetResult(message string, success bool) tea.Cmd {
	m.message = message
	m.success = success
	return m.reset()
}

func (m *Model) reset() tea.Cmd {
	m.busy = false
	m.fb.current = ""
	m.fb.next = ""
	m.fb.confirm = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the profile view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, m.keys.Back) {
		return m, func() tea.Msg { return BackMsg{} }
	}
	if m.form == nil || m.busy {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.busy = true
		m.message = ""
		out := ChangePasswordMsg{Current: m.fb.current, New: m.fb.next, Confirm: m.fb.confirm}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		return m, func() tea.Msg { return BackMsg{} }
	}

	return m, cmd
}

// View renders the profile view.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	account := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %s", labelStyle.Render("Email:  "), m.principal.Email),
		fmt.Sprintf("%s %s", labelStyle.Render("User ID:"), m.principal.ID),
	)

	sections := []string{
		titleStyle.Render("Your Profile"),
		theme.BorderStyle.Padding(0, 1).Render(account),
		"",
		titleStyle.Render("Change Password"),
	}

	if m.message != "" {
		style := theme.ErrorStyle
		if m.success {
			style = theme.SuccessStyle
		}
		sections = append(sections, style.Render(m.message), "")
	}

	switch {
	case m.busy:
		sections = append(sections, theme.HelpStyle.Render("Updating password..."))
	case m.form != nil:
		sections = append(sections, m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.current),
			huh.NewInput().
				Title("New Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.next),
			huh.NewInput().
				Title("Confirm New Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm),
		),
	).WithWidth(w).WithShowHelp(true)
}
