package session

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/push"
	"github.com/nhle/notification-inbox/internal/store"
	appsync "github.com/nhle/notification-inbox/internal/sync"
)

type fakeSub struct {
	events chan push.Event
	once   gosync.Once
	closed chan struct{}
}

func newFakeSub() *fakeSub {
	return &fakeSub{events: make(chan push.Event, 8), closed: make(chan struct{})}
}

func (f *fakeSub) Events() <-chan push.Event { return f.events }
func (f *fakeSub) State() push.ConnState     { return push.StateConnected }
func (f *fakeSub) Close() {
	f.once.Do(func() {
		close(f.closed)
		close(f.events)
	})
}

func (f *fakeSub) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

type staticFetcher map[string][]model.Notification

func (s staticFetcher) Fetch(_ context.Context, principalID string) ([]model.Notification, error) {
	return s[principalID], nil
}

var base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func note(id, owner string) model.Notification {
	return model.Notification{ID: id, PrincipalID: owner, Type: model.TypeFeedback, CreatedAt: base}
}

type harness struct {
	store *store.Store
	mgr   *Manager
	subs  map[string]*fakeSub
	mu    gosync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{subs: map[string]*fakeSub{}}
	h.store = store.New(staticFetcher{
		"alice": {note("a1", "alice"), note("a2", "alice")},
		"bob":   {note("b1", "bob")},
	}, nil)
	h.mgr = NewManager(Options{
		Store: h.store,
		Dial: func(_ context.Context, principalID string) Subscription {
			sub := newFakeSub()
			h.mu.Lock()
			h.subs[principalID] = sub
			h.mu.Unlock()
			return sub
		},
	})
	t.Cleanup(h.mgr.Stop)
	return h
}

func (h *harness) sub(id string) *fakeSub {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subs[id]
}

func firstResult(t *testing.T, cmd func() any) appsync.ResultMsg {
	t.Helper()
	done := make(chan any, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		res, ok := msg.(appsync.ResultMsg)
		require.True(t, ok, "unexpected msg %T", msg)
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for initial load")
		return appsync.ResultMsg{}
	}
}

func TestStartLoadsAndAppliesPush(t *testing.T) {
	h := newHarness(t)

	cmd, err := h.mgr.Start(model.Principal{ID: "alice", Email: "alice@acme.test"})
	require.NoError(t, err)
	res := firstResult(t, func() any { return cmd() })
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "alice", h.store.Principal())
	assert.Equal(t, "alice@acme.test", h.mgr.Principal().Email)
	assert.Equal(t, push.StateConnected, h.mgr.PushState())

	h.sub("alice").events <- push.NewEvent{Record: note("a3", "alice")}
	h.sub("alice").events <- push.NewEvent{Record: note("x1", "bob")}
	assert.Eventually(t, func() bool {
		_, ok := h.store.Get("a3")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := h.store.Get("x1")
	assert.False(t, ok)
}

func TestSwitchingPrincipalReleasesPrevious(t *testing.T) {
	h := newHarness(t)

	cmd, err := h.mgr.Start(model.Principal{ID: "alice"})
	require.NoError(t, err)
	firstResult(t, func() any { return cmd() })
	alice := h.sub("alice")

	cmd, err = h.mgr.Start(model.Principal{ID: "bob"})
	require.NoError(t, err)
	assert.True(t, alice.isClosed())

	res := firstResult(t, func() any { return cmd() })
	assert.Equal(t, "bob", res.PrincipalID)
	assert.Equal(t, []string{"b1"}, ids(h.store.Snapshot()))
}

func TestStopReleasesEverything(t *testing.T) {
	h := newHarness(t)

	cmd, err := h.mgr.Start(model.Principal{ID: "alice"})
	require.NoError(t, err)
	firstResult(t, func() any { return cmd() })

	h.mgr.Stop()
	assert.True(t, h.sub("alice").isClosed())
	assert.False(t, h.mgr.Active())
	assert.Empty(t, h.store.Principal())
	assert.Zero(t, h.store.Len())
	assert.ErrorIs(t, h.mgr.Refresh(), ErrNotStarted)
	assert.Nil(t, h.mgr.WaitForResult())
	assert.Equal(t, push.StateClosed, h.mgr.PushState())

	h.mgr.Stop()
}

func TestStartFailureReleasesPartialScope(t *testing.T) {
	s := store.New(staticFetcher{}, nil)
	mgr := NewManager(Options{
		Store: s,
		Dial:  func(context.Context, string) Subscription { return nil },
	})

	_, err := mgr.Start(model.Principal{ID: "alice"})
	require.Error(t, err)
	assert.False(t, mgr.Active())
	assert.Empty(t, s.Principal())
}

func TestStartRequiresPrincipal(t *testing.T) {
	h := newHarness(t)
	_, err := h.mgr.Start(model.Principal{})
	assert.ErrorIs(t, err, ErrNoPrincipal)
}

func TestRefreshTriggersReload(t *testing.T) {
	h := newHarness(t)

	cmd, err := h.mgr.Start(model.Principal{ID: "alice"})
	require.NoError(t, err)
	firstResult(t, func() any { return cmd() })

	require.NoError(t, h.mgr.Refresh())
	wait := h.mgr.WaitForResult()
	require.NotNil(t, wait)
	res := firstResult(t, func() any { return wait() })
	assert.Equal(t, 2, res.Count)
}

func ids(records []model.Notification) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
