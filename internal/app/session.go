package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-inbox/internal/credential"
	"github.com/nhle/notification-inbox/internal/identity"
	"github.com/nhle/notification-inbox/internal/model"
	appsync "github.com/nhle/notification-inbox/internal/sync"
)

// Identity signs the user in and out. *identity.Client implements it.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (model.Principal, error)
	SignUp(ctx context.Context, email, password, confirm string) (model.Principal, error)
	Restore(ctx context.Context, email string) (model.Principal, error)
	ChangePassword(ctx context.Context, current, next, confirm string) error
	SignOut() error
}

// signedInMsg carries the outcome of a sign-in or restore attempt.
type signedInMsg struct {
	principal model.Principal
	restored  bool
	err       error
}

// configSavedMsg is sent after the config file was written in the
// background.
type configSavedMsg struct {
	err error
}

// signIn returns a command that authenticates with email and password.
func (m Model) signIn(email, password string) tea.Cmd {
	id := m.deps.Identity
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		p, err := id.SignIn(ctx, email, password)
		return signedInMsg{principal: p, err: err}
	}
}

// signUp returns a command that creates an account and signs it in.
func (m Model) signUp(email, password, confirm string) tea.Cmd {
	id := m.deps.Identity
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		p, err := id.SignUp(ctx, email, password, confirm)
		return signedInMsg{principal: p, err: err}
	}
}

// restoreSession returns a command that resumes the session of email from
// its stored refresh token.
func (m Model) restoreSession(email string) tea.Cmd {
	id := m.deps.Identity
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		p, err := id.Restore(ctx, email)
		return signedInMsg{principal: p, restored: true, err: err}
	}
}

// handleSignedIn starts the session for a freshly authenticated principal,
// or reopens the login form with the failure.
func (m Model) handleSignedIn(msg signedInMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if msg.restored {
			m.restoring = false
			if !errors.Is(msg.err, credential.ErrNotFound) {
				m.logger.Info("session restore failed", "error", msg.err)
			}
			return m, m.loginView.Start(m.cfg.Identity.LastEmail)
		}
		return m, m.loginView.SetError(identity.SignInMessage(msg.err))
	}

	m.restoring = false
	cmd, err := m.deps.Sessions.Start(msg.principal)
	if err != nil {
		m.logger.Error("starting session failed", "error", err)
		return m, m.loginView.SetError("Failed to sign in. Please try again.")
	}

	m.currentView = ViewList
	m.statusMsg = ""
	m.authErrorMessage = ""
	return m, tea.Batch(cmd, m.rememberEmail(msg.principal.Email))
}

// handleSyncResult records the outcome of a background reload. Results for
// a principal that is no longer active are dropped.
func (m Model) handleSyncResult(msg appsync.ResultMsg) (tea.Model, tea.Cmd) {
	if msg.PrincipalID != m.deps.Sessions.Principal().ID {
		return m, nil
	}

	switch {
	case msg.AuthError != nil:
		m.authErrorMessage = msg.AuthError.Message
	case msg.Error != nil:
		m.statusMsg = "Failed to load notifications: " + msg.Error.Error()
	default:
		m.authErrorMessage = ""
		if m.statusMsg != "" && m.deps.Store.Status().Err == nil {
			m.statusMsg = ""
		}
	}

	return m, m.deps.Sessions.WaitForResult()
}

// reload asks the poller for an immediate authoritative reload.
func (m Model) reload() tea.Cmd {
	if err := m.deps.Sessions.Refresh(); err != nil {
		m.logger.Debug("reload without session", "error", err)
	}
	return nil
}

// signOut releases the session, forgets the credentials and returns to the
// login form.
func (m Model) signOut() (tea.Model, tea.Cmd) {
	m.deps.Sessions.Stop()
	if err := m.deps.Identity.SignOut(); err != nil {
		m.logger.Warn("sign out failed", "error", err)
	}

	m.currentView = ViewLogin
	m.statusMsg = ""
	m.authErrorMessage = ""
	m.unreadCount = 0
	return m, m.loginView.Start(m.cfg.Identity.LastEmail)
}

// rememberEmail saves email as the account to restore at next start.
func (m *Model) rememberEmail(email string) tea.Cmd {
	if email == "" || email == m.cfg.Identity.LastEmail || m.deps.SaveConfig == nil {
		return nil
	}
	m.cfg.Identity.LastEmail = email
	cfg := m.cfg
	save := m.deps.SaveConfig
	return func() tea.Msg {
		return configSavedMsg{err: save(&cfg)}
	}
}
