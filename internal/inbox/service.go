package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/store"
)

// ErrNotSignedIn is returned by every intent when no principal is bound.
var ErrNotSignedIn = errors.New("inbox: not signed in")

// ErrNotFound is returned by OpenDetail for an id the store does not hold.
var ErrNotFound = errors.New("notification not found")

// ErrPrincipalChanged is returned when an intent was issued for a principal
// other than the one the store is bound to now. Nothing is sent.
var ErrPrincipalChanged = errors.New("inbox: principal changed since the intent was issued")

// Commands are the backend operations behind the user's intents.
type Commands interface {
	MarkRead(ctx context.Context, ids []string, isRead bool) error
	MarkAll(ctx context.Context, isRead bool) error
	Delete(ctx context.Context, id string) error
}

// Service turns user intents into backend commands. It never edits the
// store itself: the matching push event is what changes local state.
type Service struct {
	store    *store.Store
	commands Commands
	logger   *slog.Logger
}

// New creates a Service.
func New(s *store.Store, c Commands, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, commands: c, logger: logger.With("component", "inbox")}
}

// check verifies the store is still bound to principalID, the principal
// the intent was issued under. The backend authorizes with whoever is
// signed in when the request goes out, so a stale intent must not reach it.
func (s *Service) check(principalID string) error {
	bound := s.store.Principal()
	switch {
	case bound == "" || principalID == "":
		return ErrNotSignedIn
	case bound != principalID:
		return ErrPrincipalChanged
	}
	return nil
}

// MarkRead asks the backend to mark id as read.
func (s *Service) MarkRead(ctx context.Context, principalID, id string) error {
	return s.setRead(ctx, principalID, id, true)
}

// MarkUnread asks the backend to mark id as unread.
func (s *Service) MarkUnread(ctx context.Context, principalID, id string) error {
	return s.setRead(ctx, principalID, id, false)
}

// ToggleRead flips the read flag of id as currently held by the store.
func (s *Service) ToggleRead(ctx context.Context, principalID, id string) error {
	if err := s.check(principalID); err != nil {
		return err
	}
	r, ok := s.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	return s.setRead(ctx, principalID, id, !r.IsRead)
}

func (s *Service) setRead(ctx context.Context, principalID, id string, isRead bool) error {
	if err := s.check(principalID); err != nil {
		return err
	}
	if err := s.commands.MarkRead(ctx, []string{id}, isRead); err != nil {
		s.logger.Warn("read status command failed", "id", id, "is_read", isRead, "error", err)
		return err
	}
	return nil
}

// MarkAllRead asks the backend to mark every notification as read.
func (s *Service) MarkAllRead(ctx context.Context, principalID string) error {
	if err := s.check(principalID); err != nil {
		return err
	}
	if err := s.commands.MarkAll(ctx, true); err != nil {
		s.logger.Warn("mark all command failed", "error", err)
		return err
	}
	return nil
}

// Delete asks the backend to delete id.
func (s *Service) Delete(ctx context.Context, principalID, id string) error {
	if err := s.check(principalID); err != nil {
		return err
	}
	if err := s.commands.Delete(ctx, id); err != nil {
		s.logger.Warn("delete command failed", "id", id, "error", err)
		return err
	}
	return nil
}

// Reload replaces the local set with the backend's snapshot.
func (s *Service) Reload(ctx context.Context, principalID string) ([]model.Notification, error) {
	if err := s.check(principalID); err != nil {
		return nil, err
	}
	records, err := s.store.Load(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("reloading notifications: %w", err)
	}
	return records, nil
}

// OpenDetail returns the record for display. When it is unread, exactly one
// mark-as-read command is issued; a failure of that command is returned
// alongside the record, which is still shown.
func (s *Service) OpenDetail(ctx context.Context, principalID, id string) (model.Notification, error) {
	if err := s.check(principalID); err != nil {
		return model.Notification{}, err
	}
	r, ok := s.store.Get(id)
	if !ok {
		return model.Notification{}, ErrNotFound
	}
	if r.IsRead {
		return r, nil
	}
	return r, s.setRead(ctx, principalID, id, true)
}
