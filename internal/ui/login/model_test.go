package login

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validateEmail("hr@acme.test"))
	assert.NoError(t, validateEmail("  hr@acme.test "))
	assert.Error(t, validateEmail(""))
	assert.Error(t, validateEmail("not-an-email"))
}

func TestValidateRequired(t *testing.T) {
	check := validateRequired("Password")
	assert.EqualError(t, check("   "), "Password is required")
	assert.NoError(t, check("x"))
}

func TestErrorIsShownAndFormReopens(t *testing.T) {
	m := New(80, 24)
	m.Start("hr@acme.test")
	m.SetBusy(true)
	assert.Contains(t, m.View(), "Signing in...")

	m.SetError("Invalid email or password.")
	out := m.View()
	assert.Contains(t, out, "Invalid email or password.")
	assert.NotContains(t, out, "Signing in...")
	assert.Equal(t, "hr@acme.test", m.fb.email)
	assert.Empty(t, m.fb.password)
}

func TestToggleRegisterMode(t *testing.T) {
	m := New(80, 24)
	m.Start("new@acme.test")
	assert.Equal(t, ModeSignIn, m.Mode())
	assert.Contains(t, m.View(), "Employer Login")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ModeRegister, m.Mode())
	out := m.View()
	assert.Contains(t, out, "Create Employer Account")
	assert.Contains(t, out, "Confirm Password")
	assert.Equal(t, "new@acme.test", m.fb.email)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ModeSignIn, m.Mode())
	assert.NotContains(t, m.View(), "Confirm Password")
}

func TestRegisterBusyText(t *testing.T) {
	m := New(80, 24)
	m.Start("")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m.SetBusy(true)
	assert.Contains(t, m.View(), "Creating account...")
}
