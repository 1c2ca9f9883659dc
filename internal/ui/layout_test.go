package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestContentHeight(t *testing.T) {
	assert.Equal(t, 22, NewLayout(80, 24).ContentHeight())
	assert.Equal(t, 0, NewLayout(80, 1).ContentHeight())
}

func TestHeaderSpansWidth(t *testing.T) {
	l := NewLayout(60, 20)
	h := l.RenderHeader("Inbox", "3", "ann@example.com · live")

	assert.Equal(t, 60, lipgloss.Width(h))
	assert.Contains(t, h, "Inbox")
	assert.Contains(t, h, "3")
	assert.Contains(t, h, "live")
}

func TestHeaderTruncatesStatus(t *testing.T) {
	l := NewLayout(30, 20)
	h := l.RenderHeader("Employer Notifications", "", strings.Repeat("x", 40))

	assert.LessOrEqual(t, lipgloss.Width(h), 30)
	assert.Contains(t, h, "Employer Notifications")
	assert.Contains(t, h, "…")
}

func TestStatusBars(t *testing.T) {
	l := NewLayout(40, 10)

	assert.Equal(t, 40, lipgloss.Width(l.RenderStatusBar("q quit")))
	alert := l.RenderAlertBar("Could not delete notification: boom")
	assert.Equal(t, 40, lipgloss.Width(alert))
	assert.Contains(t, alert, "boom")
}
