package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-inbox/internal/gateway"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/store"
)

// SyncState represents the current state of the resync loop.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "sync failed"
	default:
		return "idle"
	}
}

// SyncStatus holds the state of the last reload.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// ResultMsg is a tea.Msg sent when a reload completes.
type ResultMsg struct {
	PrincipalID string
	Count       int
	Unread      int
	Error       error
	AuthError   *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the backend rejects the credentials.
type AuthErrorMsg struct {
	Message string
}

// Loader reloads the authoritative snapshot for a principal.
type Loader interface {
	Load(ctx context.Context, principalID string) ([]model.Notification, error)
}

// fetchTimeout is the maximum time allowed for a single reload.
const fetchTimeout = 30 * time.Second

// Poller reloads one principal's notifications in the background: once on
// start, on every tick of the interval and whenever Refresh is called. It
// bounds how long a missed push event can leave the local set stale.
type Poller struct {
	loader      Loader
	principalID string
	interval    time.Duration
	logger      *slog.Logger

	status    SyncStatus
	resultCh  chan ResultMsg
	triggerCh chan struct{}
	cancel    context.CancelFunc
	doneCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	stopped   bool
}

// New creates a poller. An interval of zero disables periodic reloads;
// the initial load and Refresh still run.
func New(loader Loader, principalID string, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		loader:      loader,
		principalID: principalID,
		interval:    interval,
		logger:      logger.With("component", "sync", "principal", principalID),
		resultCh:    make(chan ResultMsg, 16),
		triggerCh:   make(chan struct{}, 1),
		doneCh:      make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(ctx)

	return p.waitForResult()
}

// Stop halts the polling goroutine, cancelling a reload in flight, and
// waits for it to exit. The result channel is closed afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		if !p.stopped {
			p.stopped = true
			close(p.resultCh)
		}
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	p.cancel()
	p.mu.Unlock()

	<-p.doneCh
}

// Refresh triggers an immediate reload. Requests made while one is already
// pending are merged, and it never blocks, even before Start or after Stop.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the state of the last reload.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.doneCh)
	defer close(p.resultCh)

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	p.reload(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			p.reload(ctx)
		case <-p.triggerCh:
			p.reload(ctx)
		}
	}
}

// reload performs a single load and reports the outcome.
func (p *Poller) reload(parent context.Context) {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(parent, fetchTimeout)
	defer cancel()

	records, err := p.loader.Load(ctx, p.principalID)
	if parent.Err() != nil {
		return
	}
	if errors.Is(err, store.ErrStalePrincipal) || errors.Is(err, store.ErrUnbound) {
		p.logger.Debug("discarding reload for inactive principal")
		p.setStatus(SyncIdle, nil)
		return
	}

	if err != nil {
		p.setStatus(SyncError, err)
		p.logger.Warn("reload failed", "error", err)

		msg := ResultMsg{PrincipalID: p.principalID, Error: err}
		if gateway.IsAuthError(err) {
			msg.AuthError = &AuthErrorMsg{
				Message: "Session expired. Press 'L' to sign in again.",
			}
		}
		p.sendResult(msg)
		return
	}

	p.setStatus(SyncIdle, nil)
	p.sendResult(ResultMsg{
		PrincipalID: p.principalID,
		Count:       len(records),
		Unread:      projection.UnreadCount(records),
	})
}

// setStatus updates the sync status.
func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a ResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg ResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next reload result.
// This should be called after processing a ResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
