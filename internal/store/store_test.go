package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-inbox/internal/model"
)

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx context.Context, principalID string) ([]model.Notification, error) {
	args := m.Called(ctx, principalID)
	if r, _ := args.Get(0).([]model.Notification); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

var base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func rec(id string, isRead bool, minutes int) model.Notification {
	return model.Notification{
		ID:          id,
		PrincipalID: "alice",
		Type:        model.TypeApplication,
		Title:       "title " + id,
		Message:     "message " + id,
		CreatedAt:   base.Add(time.Duration(minutes) * time.Minute),
		IsRead:      isRead,
	}
}

func boundStore(t *testing.T, f Fetcher) *Store {
	t.Helper()
	s := New(f, nil)
	s.Bind("alice")
	return s
}

func ids(records []model.Notification) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestLoadReplacesSet(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{rec("1", false, 1), rec("2", true, 2)}, nil)

	s := boundStore(t, f)
	s.Insert(rec("old", false, 0))

	got, err := s.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids(got))
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("old")
	assert.False(t, ok)

	st := s.Status()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.False(t, st.LoadedAt.IsZero())
}

func TestLoadIsIdempotent(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{rec("1", false, 1), rec("2", true, 2)}, nil)

	s := boundStore(t, f)
	_, err := s.Load(context.Background(), "alice")
	require.NoError(t, err)
	first := s.Snapshot()

	_, err = s.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, first, s.Snapshot())
	f.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestLoadFailureKeepsPreviousSet(t *testing.T) {
	fetchErr := errors.New("boom")
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{rec("1", false, 1)}, nil).Once()
	f.On("Fetch", mock.Anything, "alice").Return(nil, fetchErr).Once()

	s := boundStore(t, f)
	_, err := s.Load(context.Background(), "alice")
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "alice")
	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, s.Len())
	assert.ErrorIs(t, s.Status().Err, fetchErr)
	assert.False(t, s.Status().Loading)
}

func TestLoadRetryClearsError(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return(nil, errors.New("down")).Once()
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{rec("1", false, 1)}, nil).Once()

	s := boundStore(t, f)
	_, err := s.Load(context.Background(), "alice")
	require.Error(t, err)

	_, err = s.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.NoError(t, s.Status().Err)
	assert.Equal(t, 1, s.Len())
}

func TestLoadForOtherPrincipalIsRejected(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	_, err := s.Load(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrStalePrincipal)

	unbound := New(&mockFetcher{}, nil)
	_, err = unbound.Load(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrUnbound)
}

func TestLoadCompletingAfterRebindIsDropped(t *testing.T) {
	f := &mockFetcher{}
	s := boundStore(t, f)
	f.On("Fetch", mock.Anything, "alice").
		Run(func(mock.Arguments) { s.Bind("bob") }).
		Return([]model.Notification{rec("1", false, 1)}, nil)

	_, err := s.Load(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStalePrincipal)
	assert.Equal(t, "bob", s.Principal())
	assert.Zero(t, s.Len())
}

func TestLoadDropsRecordsOfOtherPrincipals(t *testing.T) {
	foreign := rec("x", false, 3)
	foreign.PrincipalID = "mallory"
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{rec("1", false, 1), foreign}, nil)

	s := boundStore(t, f)
	got, err := s.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestInsertIsIdempotent(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	r := rec("1", false, 1)

	assert.True(t, s.Insert(r))
	changed := r
	changed.Title = "different"
	assert.False(t, s.Insert(changed))

	assert.Equal(t, 1, s.Len())
	got, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "title 1", got.Title)
}

func TestInsertOnUnboundStoreIsIgnored(t *testing.T) {
	s := New(&mockFetcher{}, nil)
	assert.False(t, s.Insert(rec("1", false, 1)))
	assert.Zero(t, s.Len())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	s.Insert(rec("1", false, 1))

	assert.False(t, s.Remove("missing"))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Remove("1"))
	assert.False(t, s.Remove("1"))
	assert.Zero(t, s.Len())
}

func TestRemovedRecordIsNeverResurrected(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{rec("1", false, 1), rec("2", false, 2)}, nil)

	s := boundStore(t, f)
	s.Insert(rec("1", false, 1))
	s.Remove("1")

	assert.False(t, s.Insert(rec("1", false, 1)), "duplicate new event after delete")

	got, err := s.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got), "stale snapshot still listing deleted id")
}

func TestRebindForgetsTombstones(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	s.Remove("1")
	s.Bind("alice")
	assert.True(t, s.Insert(rec("1", false, 1)))
}

func TestApplyReadStatus(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	s.Insert(rec("1", false, 1))
	s.Insert(rec("2", false, 2))
	s.Insert(rec("3", true, 3))

	assert.Equal(t, 1, s.ApplyReadStatus([]string{"1", "missing"}, true))
	assert.Equal(t, 0, s.ApplyReadStatus([]string{"1"}, true))

	r1, _ := s.Get("1")
	r2, _ := s.Get("2")
	assert.True(t, r1.IsRead)
	assert.False(t, r2.IsRead)

	assert.Equal(t, 1, s.ApplyReadStatus([]string{"3"}, false))
	r3, _ := s.Get("3")
	assert.False(t, r3.IsRead)
}

func TestApplyReadStatusAllTwiceEqualsOnce(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	s.Insert(rec("1", false, 1))
	s.Insert(rec("2", true, 2))

	assert.Equal(t, 1, s.ApplyReadStatusAll(true))
	once := s.Snapshot()
	assert.Equal(t, 0, s.ApplyReadStatusAll(true))
	assert.Equal(t, once, s.Snapshot())
	for _, r := range once {
		assert.True(t, r.IsRead)
	}
}

func TestClearKeepsBinding(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	s.Insert(rec("1", false, 1))
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Equal(t, "alice", s.Principal())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := boundStore(t, &mockFetcher{})
	r := rec("1", false, 1)
	r.SuggestedActions = []string{"call"}
	s.Insert(r)

	snap := s.Snapshot()
	snap[0].IsRead = true
	snap[0].SuggestedActions[0] = "mutated"

	got, _ := s.Get("1")
	assert.False(t, got.IsRead)
	assert.Equal(t, []string{"call"}, got.SuggestedActions)
}

func TestChangesSignalCoalesces(t *testing.T) {
	s := New(&mockFetcher{}, nil)
	s.Bind("alice")
	s.Insert(rec("1", false, 1))
	s.Insert(rec("2", false, 2))

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-s.Changes():
		t.Fatal("signals should coalesce")
	default:
	}

	s.Remove("missing")
	select {
	case <-s.Changes():
		t.Fatal("no-op removal should not signal")
	default:
	}
}
