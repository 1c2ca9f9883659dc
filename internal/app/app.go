package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-inbox/internal/inbox"
	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/session"
	"github.com/nhle/notification-inbox/internal/store"
	appsync "github.com/nhle/notification-inbox/internal/sync"
	"github.com/nhle/notification-inbox/internal/ui"
	"github.com/nhle/notification-inbox/internal/ui/command"
	configview "github.com/nhle/notification-inbox/internal/ui/config"
	"github.com/nhle/notification-inbox/internal/ui/detail"
	helpview "github.com/nhle/notification-inbox/internal/ui/help"
	"github.com/nhle/notification-inbox/internal/ui/inboxlist"
	"github.com/nhle/notification-inbox/internal/ui/latest"
	"github.com/nhle/notification-inbox/internal/ui/login"
	"github.com/nhle/notification-inbox/internal/ui/profile"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewDetail
	ViewLatest
	ViewProfile
	ViewConfig
	ViewHelp
	ViewCommand
)

// statusRefreshInterval is how often the header re-reads the connection
// state, which changes without a message of its own.
const statusRefreshInterval = 2 * time.Second

// storeChangedMsg is sent after the notification store signals a change.
type storeChangedMsg struct{}

// statusTickMsg re-renders the header.
type statusTickMsg struct{}

// Deps are the collaborators the root model drives.
type Deps struct {
	Config   model.AppConfig
	Store    *store.Store
	Identity Identity
	Sessions *session.Manager
	Inbox    *inbox.Service

	// SaveConfig persists settings changes and the last signed-in email.
	SaveConfig configview.Saver
	Logger     *slog.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the signed-in session.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	deps         Deps
	cfg          model.AppConfig
	logger       *slog.Logger
	keys         *keys.KeyMap

	inboxList   inboxlist.Model
	detail      detail.Model
	latestView  latest.Model
	loginView   login.Model
	profileView profile.Model
	configView  configview.Model
	helpView    helpview.Model
	commandView command.Model

	initCmd     tea.Cmd
	restoring   bool
	ready       bool
	unreadCount int

	// statusMsg is the last command failure, shown in the status bar.
	statusMsg        string
	authErrorMessage string
}

// New creates the root application model. It starts on the login view;
// when an account was used before, Init tries to resume its session.
func New(d Deps) Model {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewLogin,
		deps:        d,
		cfg:         d.Config,
		logger:      d.Logger.With("component", "app"),
		keys:        k,
		inboxList:   inboxlist.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		latestView:  latest.New(k, d.Config.Display.LatestCount, 80, 24),
		loginView:   login.New(80, 24),
		profileView: profile.New(k, 80, 24),
		configView:  configview.New(d.Config, d.SaveConfig, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}

	m.initCmd = m.loginView.Start(d.Config.Identity.LastEmail)
	if d.Config.Identity.LastEmail != "" {
		m.restoring = true
		m.loginView.SetBusy(true)
	}
	return m
}

// Init starts the form, the store watcher and, when possible, a session
// restore.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.initCmd,
		waitForStoreChange(m.deps.Store),
		statusTick(),
	}
	if m.restoring {
		cmds = append(cmds, m.restoreSession(m.cfg.Identity.LastEmail))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.inboxList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.latestView.SetSize(w, h)
		m.loginView.SetSize(w, h)
		m.profileView.SetSize(w, h)
		m.configView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case storeChangedMsg:
		return m, tea.Batch(m.syncFromStore(), waitForStoreChange(m.deps.Store))

	case statusTickMsg:
		return m, statusTick()

	// --- Session lifecycle ---

	case signedInMsg:
		return m.handleSignedIn(msg)

	case login.SubmitMsg:
		m.statusMsg = ""
		if msg.Register {
			return m, m.signUp(msg.Email, msg.Password, msg.Confirm)
		}
		return m, m.signIn(msg.Email, msg.Password)

	case login.CancelMsg:
		return m.quit()

	case appsync.ResultMsg:
		return m.handleSyncResult(msg)

	// --- Intents ---

	case inboxlist.SelectedMsg:
		return m.openDetail(msg.ID)

	case latest.SelectedMsg:
		return m.openDetail(msg.ID)

	case inboxlist.ToggleReadMsg:
		return m, m.toggleRead(msg.ID)

	case inboxlist.DeleteMsg:
		return m, m.deleteNotification(msg.ID)

	case inboxlist.MarkAllMsg, latest.MarkAllMsg:
		return m, m.markAllRead()

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionToggleRead:
			return m, m.toggleRead(msg.ID)
		case detail.ActionDelete:
			return m, m.deleteNotification(msg.ID)
		}
		return m, nil

	case detailOpenedMsg:
		if m.isStale(msg.principalID) {
			return m, nil
		}
		if msg.err != nil && m.currentView == ViewDetail && m.detail.ID() == msg.id {
			m.detail.SetCommandError(commandErrorText(msg.err))
		}
		return m.noteCommandResult(commandResultMsg{principalID: msg.principalID, op: "open", err: msg.err})

	case commandResultMsg:
		return m.noteCommandResult(msg)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case latest.CloseMsg:
		m.currentView = ViewList
		return m, nil

	// --- Profile ---

	case profile.ChangePasswordMsg:
		return m, m.changePassword(msg.Current, msg.New, msg.Confirm)

	case passwordChangedMsg:
		return m, m.profileView.SetResult(msg.text, msg.ok)

	case profile.BackMsg:
		m.currentView = ViewList
		return m, nil

	// --- Settings ---

	case configview.ConfigSavedMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case configview.ConfigDoneMsg:
		m.currentView = ViewList
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			m.logger.Warn("saving config failed", "error", msg.err)
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.handlesGlobalKeys() {
			if next, cmd, ok := m.handleGlobalKey(msg); ok {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handlesGlobalKeys reports whether single-letter shortcuts are live. Forms
// and text inputs own the keyboard while they are focused.
func (m Model) handlesGlobalKeys() bool {
	switch m.currentView {
	case ViewList:
		return !m.inboxList.Searching()
	case ViewDetail, ViewLatest, ViewHelp:
		return true
	default:
		return false
	}
}

// handleGlobalKey processes shortcuts that switch views or act on the
// session. ok is false when the key belongs to the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			next, cmd := m.quit()
			return next, cmd, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewList {
			return m, m.reload(), true
		}

	case key.Matches(msg, m.keys.Latest):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewLatest
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Profile):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewProfile
			return m, m.profileView.Start(m.deps.Sessions.Principal()), true
		}

	case key.Matches(msg, m.keys.Settings):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewConfig
			return m, m.configView.Init(), true
		}

	case key.Matches(msg, m.keys.Logout):
		if m.currentView == ViewList || m.currentView == ViewDetail {
			next, cmd := m.signOut()
			return next, cmd, true
		}

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewList:
		m.inboxList, cmd = m.inboxList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewLatest:
		m.latestView, cmd = m.latestView.Update(msg)
	case ViewProfile:
		m.profileView, cmd = m.profileView.Update(msg)
	case ViewConfig:
		m.configView, cmd = m.configView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// syncFromStore pushes the current record set into every view that
// projects from it. The open detail view follows its record, so a read
// confirmation or a deletion shows up while it is displayed.
func (m *Model) syncFromStore() tea.Cmd {
	records := m.deps.Store.Snapshot()
	m.unreadCount = projection.UnreadCount(records)
	m.latestView.SetRecords(records)

	if id := m.detail.ID(); id != "" {
		n, ok := m.deps.Store.Get(id)
		m.detail.SetNotification(n, ok)
	}
	return m.inboxList.SetRecords(records)
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(c command.CommandMsg) (tea.Model, tea.Cmd) {
	if !m.deps.Sessions.Active() && c.Name != command.Quit {
		m.currentView = ViewLogin
		return m, nil
	}

	switch c.Name {
	case command.Reload:
		return m, m.reload()
	case command.ReadAll:
		return m, m.markAllRead()
	case command.Filter:
		m.currentView = ViewList
		return m, m.inboxList.SetFilterType(c.Arg)
	case command.Priority:
		m.currentView = ViewList
		return m, m.inboxList.TogglePrioritySort()
	case command.Latest:
		m.currentView = ViewLatest
		return m, nil
	case command.Profile:
		m.currentView = ViewProfile
		return m, m.profileView.Start(m.deps.Sessions.Principal())
	case command.Settings:
		m.currentView = ViewConfig
		return m, m.configView.Init()
	case command.Logout:
		return m.signOut()
	case command.Quit:
		return m.quit()
	}
	return m, nil
}

// applyConfig takes saved settings into use. Endpoint changes need a new
// session; display changes apply at once.
func (m *Model) applyConfig(cfg model.AppConfig) {
	limitChanged := cfg.Display.LatestCount != m.cfg.Display.LatestCount
	m.cfg = cfg
	if limitChanged {
		m.latestView = latest.New(m.keys, cfg.Display.LatestCount,
			m.layout.ContentWidth(), m.layout.ContentHeight())
		m.latestView.SetRecords(m.deps.Store.Snapshot())
	}
}

// quit releases the session and exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.deps.Sessions.Stop()
	return m, tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	badge := ""
	if m.unreadCount > 0 {
		badge = fmt.Sprintf("%d", m.unreadCount)
	}
	header := m.layout.RenderHeader("Employer Notifications", badge, m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	if alert := m.alert(); alert != "" {
		statusBar = m.layout.RenderAlertBar(alert)
	}

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewList:
		return m.inboxList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewLatest:
		return m.latestView.View()
	case ViewProfile:
		return m.profileView.View()
	case ViewConfig:
		return m.configView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// alert returns the failure that replaces the hints, if any. An expired
// session outranks a failed command.
func (m Model) alert() string {
	if m.authErrorMessage != "" && (m.currentView == ViewList || m.currentView == ViewDetail) {
		return m.authErrorMessage
	}
	if m.statusMsg != "" && m.currentView == ViewList {
		return m.statusMsg
	}
	return ""
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		if m.restoring {
			return "restoring session..."
		}
		return "enter submit | ctrl+r sign in/register | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | m read/unread | d delete | j/k scroll"
	case ViewLatest:
		return "enter open | A mark all read | esc back"
	case ViewProfile:
		return "enter submit | esc back"
	case ViewConfig:
		return "e edit | esc back"
	default:
		return "q quit | ? help | / search | f type | p priority | m read | d delete | A all read | n latest"
	}
}

// headerStatus describes the principal and the freshness of the set.
func (m Model) headerStatus() string {
	if !m.deps.Sessions.Active() {
		return "signed out"
	}
	p := m.deps.Sessions.Principal()
	return fmt.Sprintf("%s · %s", p.Email, syncStatusText(m.deps.Sessions.PushState(), m.deps.Sessions.SyncStatus()))
}
