package session

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/push"
	"github.com/nhle/notification-inbox/internal/store"
	appsync "github.com/nhle/notification-inbox/internal/sync"
)

// ErrNotStarted is returned when an operation needs an active session.
var ErrNotStarted = errors.New("session: not started")

// ErrNoPrincipal is returned by Start for a principal without an id.
var ErrNoPrincipal = errors.New("session: principal has no id")

// Subscription is a live push stream owned by a session.
type Subscription interface {
	Events() <-chan push.Event
	State() push.ConnState
	Close()
}

// DialFunc opens a push subscription for principalID. It must not block;
// connection happens in the background.
type DialFunc func(ctx context.Context, principalID string) Subscription

// Options configures a Manager.
type Options struct {
	Store        *store.Store
	Dial         DialFunc
	SyncInterval time.Duration
	Logger       *slog.Logger
}

// scope is everything acquired for one principal.
type scope struct {
	principal   model.Principal
	cancel      context.CancelFunc
	sub         Subscription
	adapter     *push.Adapter
	adapterDone chan struct{}
	poller      *appsync.Poller
}

// Manager owns the per-principal resources: the store binding, the push
// subscription with its adapter, and the resync poller. At most one
// principal is active at a time.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu     gosync.Mutex
	active *scope
}

// NewManager creates a manager with no active session.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{opts: opts, logger: opts.Logger.With("component", "session")}
}

// Start activates principal, first releasing any previous session. It binds
// the store, subscribes to push events and starts the poller, whose first
// run is the initial load. The returned command delivers the first poller
// result.
func (m *Manager) Start(principal model.Principal) (cmd tea.Cmd, err error) {
	if principal.IsZero() {
		return nil, ErrNoPrincipal
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	sc := &scope{principal: principal, adapterDone: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	sc.cancel = cancel

	defer func() {
		if err != nil {
			m.release(sc)
		}
	}()

	m.opts.Store.Bind(principal.ID)

	if m.opts.Dial != nil {
		sc.sub = m.opts.Dial(ctx, principal.ID)
		if sc.sub == nil {
			return nil, errors.New("starting session: push dial returned no subscription")
		}
		sc.adapter = push.NewAdapter(principal.ID, m.opts.Store, m.logger)
		go func() {
			defer close(sc.adapterDone)
			sc.adapter.Run(ctx, sc.sub.Events())
		}()
	}

	sc.poller = appsync.New(m.opts.Store, principal.ID, m.opts.SyncInterval, m.logger)
	cmd = sc.poller.Start()

	m.active = sc
	m.logger.Info("session started", "principal", principal.ID)
	return cmd, nil
}

// Stop releases the active session, if any. It is safe to call repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.active == nil {
		return
	}
	sc := m.active
	m.active = nil
	m.release(sc)
	m.logger.Info("session stopped", "principal", sc.principal.ID)
}

// release tears a scope down in reverse order of acquisition. Every step
// tolerates a partially built scope.
func (m *Manager) release(sc *scope) {
	if sc.poller != nil {
		sc.poller.Stop()
	}
	if sc.cancel != nil {
		sc.cancel()
	}
	if sc.sub != nil {
		sc.sub.Close()
	}
	if sc.adapter != nil {
		<-sc.adapterDone
	}
	m.opts.Store.Bind("")
}

// Principal returns the active principal, or the zero Principal.
func (m *Manager) Principal() model.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return model.Principal{}
	}
	return m.active.principal
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Refresh asks the poller for an immediate reload.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNotStarted
	}
	m.active.poller.Refresh()
	return nil
}

// WaitForResult returns a command delivering the next poller result, or nil
// without an active session.
func (m *Manager) WaitForResult() tea.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	return m.active.poller.WaitForNextResult()
}

// PushState returns the connection state of the push stream.
func (m *Manager) PushState() push.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.sub == nil {
		return push.StateClosed
	}
	return m.active.sub.State()
}

// SyncStatus returns the poller's last reload state.
func (m *Manager) SyncStatus() appsync.SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return appsync.SyncStatus{}
	}
	return m.active.poller.Status()
}
