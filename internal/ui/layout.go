package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/notification-inbox/internal/theme"
)

// Layout splits the terminal into a one-line header, the content area and
// a one-line status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout for a terminal of the given size.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the width available to views.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left between header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the title, the unread badge when non-empty, and the
// session status flush right. The status is cut short before the title is.
func (l Layout) RenderHeader(title, badge, status string) string {
	left := theme.HeaderStyle.Render(title)
	if badge != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, theme.BadgeStyle.Render(badge))
	}

	room := l.Width - lipgloss.Width(left) - 2
	right := ""
	if room > 0 && status != "" {
		right = theme.HeaderStyle.Render(ansi.Truncate(status, room, "…"))
	}
	return l.bar(theme.HeaderStyle, left, right)
}

// RenderStatusBar renders keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.bar(theme.StatusBarStyle, theme.StatusBarStyle.Render(ansi.Truncate(hints, l.barRoom(), "…")), "")
}

// RenderAlertBar renders msg in place of the hints, in the error color.
func (l Layout) RenderAlertBar(msg string) string {
	style := theme.StatusBarStyle.Foreground(theme.ErrorStyle.GetForeground())
	return l.bar(style, style.Render(ansi.Truncate(msg, l.barRoom(), "…")), "")
}

// barRoom is the text width of a status line inside its padding.
func (l Layout) barRoom() int {
	return max(l.Width-theme.StatusBarStyle.GetHorizontalPadding(), 0)
}

// bar joins left and right with a filler in style's background so the line
// spans the full width.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
