package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-inbox/internal/gateway"
	"github.com/nhle/notification-inbox/internal/identity"
	"github.com/nhle/notification-inbox/internal/inbox"
)

// commandTimeout bounds a single backend or identity call.
const commandTimeout = 30 * time.Second

// commandResultMsg is sent after an intent was submitted to the backend.
// The visible effect arrives later as a push event. principalID is the
// principal the intent was issued under.
type commandResultMsg struct {
	principalID string
	op          string
	err         error
}

// detailOpenedMsg carries the outcome of the mark-as-read issued when an
// unread notification is opened.
type detailOpenedMsg struct {
	principalID string
	id          string
	err         error
}

// passwordChangedMsg carries the user-facing outcome of a password change.
type passwordChangedMsg struct {
	text string
	ok   bool
}

// openDetail shows the notification with id and, if it is unread, issues
// the mark-as-read command for it.
func (m Model) openDetail(id string) (tea.Model, tea.Cmd) {
	n, ok := m.deps.Store.Get(id)
	if !ok {
		return m, nil
	}
	m.detail.Open(n)
	m.previousView = m.currentView
	m.currentView = ViewDetail

	svc := m.deps.Inbox
	pid := m.deps.Sessions.Principal().ID
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		_, err := svc.OpenDetail(ctx, pid, id)
		return detailOpenedMsg{principalID: pid, id: id, err: err}
	}
}

func (m Model) toggleRead(id string) tea.Cmd {
	return m.intent("toggle read", func(ctx context.Context, svc *inbox.Service, pid string) error {
		return svc.ToggleRead(ctx, pid, id)
	})
}

func (m Model) deleteNotification(id string) tea.Cmd {
	return m.intent("delete", func(ctx context.Context, svc *inbox.Service, pid string) error {
		return svc.Delete(ctx, pid, id)
	})
}

func (m Model) markAllRead() tea.Cmd {
	return m.intent("mark all read", func(ctx context.Context, svc *inbox.Service, pid string) error {
		return svc.MarkAllRead(ctx, pid)
	})
}

// intent runs fn against the inbox service in the background, tagged with
// the principal active now.
func (m Model) intent(op string, fn func(context.Context, *inbox.Service, string) error) tea.Cmd {
	svc := m.deps.Inbox
	pid := m.deps.Sessions.Principal().ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandResultMsg{principalID: pid, op: op, err: fn(ctx, svc, pid)}
	}
}

// isStale reports whether a result was issued under a principal that is no
// longer active.
func (m Model) isStale(principalID string) bool {
	return principalID != m.deps.Sessions.Principal().ID
}

// noteCommandResult surfaces a failed command. Nothing is rolled back since
// nothing was applied locally. Results of another principal's intents are
// dropped.
func (m Model) noteCommandResult(msg commandResultMsg) (tea.Model, tea.Cmd) {
	if m.isStale(msg.principalID) {
		m.logger.Debug("dropping stale command result", "op", msg.op, "principal", msg.principalID)
		return m, nil
	}
	switch {
	case errors.Is(msg.err, inbox.ErrPrincipalChanged):
		// a newer session took over before the intent ran
	case msg.err == nil:
		m.statusMsg = ""
	case gateway.IsAuthError(msg.err):
		m.authErrorMessage = "Session expired. Press 'L' to sign in again."
	case errors.Is(msg.err, inbox.ErrNotFound):
		m.statusMsg = ""
	default:
		m.logger.Warn("command failed", "op", msg.op, "error", msg.err)
		m.statusMsg = commandErrorText(msg.err)
	}
	return m, nil
}

// changePassword returns a command that runs the password change and maps
// its outcome to profile text.
func (m Model) changePassword(current, next, confirm string) tea.Cmd {
	id := m.deps.Identity
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := id.ChangePassword(ctx, current, next, confirm)
		return passwordChangedMsg{text: identity.PasswordChangeMessage(err), ok: err == nil}
	}
}
