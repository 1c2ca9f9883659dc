package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/store"
)

// Base is the reference time fixtures are created relative to.
var Base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// StaticFetcher serves fixed snapshots keyed by principal id.
type StaticFetcher map[string][]model.Notification

// Fetch returns the snapshot for principalID.
func (f StaticFetcher) Fetch(_ context.Context, principalID string) ([]model.Notification, error) {
	return f[principalID], nil
}

// Notification builds an unread record owned by owner, created minutes
// after Base.
func Notification(id, owner string, minutes int) model.Notification {
	return model.Notification{
		ID:          id,
		PrincipalID: owner,
		Type:        model.TypeApplication,
		Title:       "title " + id,
		Message:     "message " + id,
		CreatedAt:   Base.Add(time.Duration(minutes) * time.Minute),
	}
}

// NewTestStore creates a store bound to principalID and loaded with records.
func NewTestStore(t *testing.T, principalID string, records ...model.Notification) *store.Store {
	t.Helper()

	s := store.New(StaticFetcher{principalID: records}, nil)
	s.Bind(principalID)
	if _, err := s.Load(context.Background(), principalID); err != nil {
		t.Fatalf("loading test store: %v", err)
	}
	return s
}
