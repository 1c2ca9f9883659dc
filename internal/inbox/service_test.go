package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-inbox/internal/gateway"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/projection"
	"github.com/nhle/notification-inbox/internal/push"
	"github.com/nhle/notification-inbox/internal/store"
)

type mockCommands struct{ mock.Mock }

func (m *mockCommands) MarkRead(ctx context.Context, ids []string, isRead bool) error {
	return m.Called(ctx, ids, isRead).Error(0)
}

func (m *mockCommands) MarkAll(ctx context.Context, isRead bool) error {
	return m.Called(ctx, isRead).Error(0)
}

func (m *mockCommands) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx context.Context, principalID string) ([]model.Notification, error) {
	args := m.Called(ctx, principalID)
	r, _ := args.Get(0).([]model.Notification)
	return r, args.Error(1)
}

var (
	t1 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

func rec(id string, isRead bool, at time.Time) model.Notification {
	return model.Notification{
		ID: id, PrincipalID: "alice", Type: model.TypeApplication,
		Title: "title " + id, CreatedAt: at, IsRead: isRead,
	}
}

func newService(t *testing.T, f store.Fetcher) (*Service, *store.Store, *mockCommands) {
	t.Helper()
	if f == nil {
		f = &mockFetcher{}
	}
	s := store.New(f, nil)
	s.Bind("alice")
	c := &mockCommands{}
	return New(s, c, nil), s, c
}

func TestIntentsRequirePrincipal(t *testing.T) {
	c := &mockCommands{}
	svc := New(store.New(&mockFetcher{}, nil), c, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.MarkRead(ctx, "alice", "1"), ErrNotSignedIn)
	assert.ErrorIs(t, svc.MarkUnread(ctx, "alice", "1"), ErrNotSignedIn)
	assert.ErrorIs(t, svc.MarkAllRead(ctx, "alice"), ErrNotSignedIn)
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "1"), ErrNotSignedIn)
	_, err := svc.Reload(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = svc.OpenDetail(ctx, "alice", "1")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	c.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestIntentsForPreviousPrincipalAreNotSent(t *testing.T) {
	svc, s, c := newService(t, nil)
	s.Insert(rec("1", false, t1))
	s.Bind("bob")
	ctx := context.Background()

	assert.ErrorIs(t, svc.MarkRead(ctx, "alice", "1"), ErrPrincipalChanged)
	assert.ErrorIs(t, svc.ToggleRead(ctx, "alice", "1"), ErrPrincipalChanged)
	assert.ErrorIs(t, svc.MarkAllRead(ctx, "alice"), ErrPrincipalChanged)
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "1"), ErrPrincipalChanged)
	_, err := svc.OpenDetail(ctx, "alice", "1")
	assert.ErrorIs(t, err, ErrPrincipalChanged)
	_, err = svc.Reload(ctx, "alice")
	assert.ErrorIs(t, err, ErrPrincipalChanged)

	c.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "MarkAll", mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIntentsDoNotTouchLocalState(t *testing.T) {
	svc, s, c := newService(t, nil)
	s.Insert(rec("1", false, t1))
	c.On("MarkRead", mock.Anything, []string{"1"}, true).Return(nil)
	c.On("MarkAll", mock.Anything, true).Return(nil)
	c.On("Delete", mock.Anything, "1").Return(nil)

	ctx := context.Background()
	require.NoError(t, svc.MarkRead(ctx, "alice", "1"))
	require.NoError(t, svc.MarkAllRead(ctx, "alice"))
	require.NoError(t, svc.Delete(ctx, "alice", "1"))

	r, ok := s.Get("1")
	require.True(t, ok)
	assert.False(t, r.IsRead)
	c.AssertExpectations(t)
}

func TestCommandFailureSurfaces(t *testing.T) {
	svc, s, c := newService(t, nil)
	s.Insert(rec("1", true, t1))
	cmdErr := &gateway.CommandError{Op: "mark as unread", StatusCode: 500, Message: "boom"}
	c.On("MarkRead", mock.Anything, []string{"1"}, false).Return(cmdErr)

	err := svc.ToggleRead(context.Background(), "alice", "1")
	assert.True(t, gateway.IsCommandError(err))

	r, _ := s.Get("1")
	assert.True(t, r.IsRead)
}

func TestToggleReadUnknownID(t *testing.T) {
	svc, _, _ := newService(t, nil)
	assert.ErrorIs(t, svc.ToggleRead(context.Background(), "alice", "missing"), ErrNotFound)
}

func TestOpenDetailUnreadIssuesSingleMarkRead(t *testing.T) {
	svc, s, c := newService(t, nil)
	s.Insert(rec("1", false, t1))
	c.On("MarkRead", mock.Anything, []string{"1"}, true).Return(nil).Once()

	r, err := svc.OpenDetail(context.Background(), "alice", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", r.ID)
	c.AssertNumberOfCalls(t, "MarkRead", 1)
}

func TestOpenDetailReadIssuesNothing(t *testing.T) {
	svc, s, c := newService(t, nil)
	s.Insert(rec("1", true, t1))

	r, err := svc.OpenDetail(context.Background(), "alice", "1")
	require.NoError(t, err)
	assert.True(t, r.IsRead)
	c.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenDetailShowsRecordWhenCommandFails(t *testing.T) {
	svc, s, c := newService(t, nil)
	s.Insert(rec("1", false, t1))
	c.On("MarkRead", mock.Anything, []string{"1"}, true).Return(errors.New("offline"))

	r, err := svc.OpenDetail(context.Background(), "alice", "1")
	assert.Error(t, err)
	assert.Equal(t, "1", r.ID)
}

func TestOpenDetailUnknownID(t *testing.T) {
	svc, _, _ := newService(t, nil)
	_, err := svc.OpenDetail(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReloadWrapsFetchError(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return(nil, &gateway.FetchError{StatusCode: 503, Message: "down"})
	svc, _, _ := newService(t, f)

	_, err := svc.Reload(context.Background(), "alice")
	assert.True(t, gateway.IsFetchError(err))
}

func TestEndToEndScenario(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "alice").Return([]model.Notification{
		rec("1", false, t1), rec("2", true, t2),
	}, nil)
	svc, s, _ := newService(t, f)
	adapter := push.NewAdapter("alice", s, nil)

	assert.Zero(t, s.Len())

	_, err := svc.Reload(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, projection.UnreadCount(s.Snapshot()))
	assert.Equal(t, []string{"2"}, ids(projection.Latest(s.Snapshot(), 1)))

	adapter.Apply(push.NewEvent{Record: rec("3", false, t3)})
	assert.Equal(t, 2, projection.UnreadCount(s.Snapshot()))
	assert.Equal(t, []string{"3"}, ids(projection.Latest(s.Snapshot(), 1)))

	adapter.Apply(push.DeletedEvent{PrincipalID: "alice", ID: "2"})
	assert.ElementsMatch(t, []string{"1", "3"}, ids(s.Snapshot()))
}

func ids(records []model.Notification) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
