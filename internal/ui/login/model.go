package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/theme"
	"github.com/nhle/notification-inbox/internal/validate"
)

// SubmitMsg is dispatched when the user submits credentials. Register is set
// when the form was in account creation mode; Confirm is only filled then.
type SubmitMsg struct {
	Email    string
	Password string
	Confirm  string
	Register bool
}

// Mode selects between signing in and creating an account.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeRegister
)

// toggleKey switches between the two modes. Letters belong to the inputs.
const toggleKey = "ctrl+r"

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email    string
	password string
	confirm  string
}

// Model is the Bubble Tea model for the sign-in form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	mode   Mode
	errMsg string
	busy   bool
	width  int
	height int
}

// New creates a new sign-in form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form, prefilling email when known.
func (m *Model) Start(email string) tea.Cmd {
	m.fb.email = email
	m.fb.password = ""
	m.fb.confirm = ""
	m.busy = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns whether the form signs in or creates an account.
func (m Model) Mode() Mode {
	return m.mode
}

// SetError shows a sign-in failure and reopens the form.
func (m *Model) SetError(msg string) tea.Cmd {
	m.errMsg = msg
	return m.Start(m.fb.email)
}

// SetBusy marks the form as waiting for the identity provider.
func (m *Model) SetBusy(busy bool) {
	m.busy = busy
}

// Update handles messages for the sign-in form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.busy {
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && km.String() == toggleKey {
		if m.mode == ModeSignIn {
			m.mode = ModeRegister
		} else {
			m.mode = ModeSignIn
		}
		m.errMsg = ""
		return m, m.Start(strings.TrimSpace(m.fb.email))
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		m.errMsg = ""
		submit := SubmitMsg{
			Email:    strings.TrimSpace(m.fb.email),
			Password: m.fb.password,
			Register: m.mode == ModeRegister,
		}
		if submit.Register {
			submit.Confirm = m.fb.confirm
		}
		return m, func() tea.Msg { return submit }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the sign-in form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title, busyText, toggle := "Employer Login", "Signing in...", "ctrl+r create an account"
	if m.mode == ModeRegister {
		title, busyText, toggle = "Create Employer Account", "Creating account...", "ctrl+r back to sign in"
	}

	content := titleStyle.Render(title) + "\n"
	if m.errMsg != "" {
		content += theme.ErrorStyle.Render(m.errMsg) + "\n\n"
	}
	if m.busy {
		content += theme.HelpStyle.Render(busyText)
	} else {
		content += m.form.View() + "\n" + theme.HelpStyle.Render(toggle)
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Email").
			Placeholder("you@company.com").
			Value(&m.fb.email).
			Validate(validateEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&m.fb.password).
			Validate(validateRequired("Password")),
	}
	if m.mode == ModeRegister {
		fb := m.fb
		fields = append(fields, huh.NewInput().
			Title("Confirm Password").
			EchoMode(huh.EchoModePassword).
			Value(&m.fb.confirm).
			Validate(func(s string) error {
				if s != fb.password {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}))
	}
	return huh.NewForm(huh.NewGroup(fields...)).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 8 {
		h = 8
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateEmail(s string) error {
	if err := validate.Var(strings.TrimSpace(s), "required,email"); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}
