package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	"github.com/nhle/notification-inbox/internal/model"
)

// ErrStalePrincipal is returned by Load when the store was re-bound to a
// different principal while the fetch was in flight. The result is dropped.
var ErrStalePrincipal = errors.New("store: principal changed during load")

// ErrUnbound is returned by Load when no principal is bound.
var ErrUnbound = errors.New("store: no principal bound")

// Fetcher returns the authoritative notification snapshot for a principal.
type Fetcher interface {
	Fetch(ctx context.Context, principalID string) ([]model.Notification, error)
}

// Status describes the outcome of the most recent load.
type Status struct {
	Loading  bool
	Err      error
	LoadedAt time.Time
}

// Store holds the in-memory notification set of the bound principal.
//
// Every mutation is idempotent: applying the same insert, read-status change
// or removal twice leaves the same state as applying it once. Removed ids are
// remembered for as long as the binding lasts, so a late duplicate insert or
// a stale snapshot never brings a deleted record back.
type Store struct {
	mu         gosync.RWMutex
	fetcher    Fetcher
	logger     *slog.Logger
	principal  string
	records    map[string]model.Notification
	tombstones map[string]struct{}
	status     Status
	changes    chan struct{}
}

// New creates an unbound store that loads through f.
func New(f Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fetcher:    f,
		logger:     logger,
		records:    make(map[string]model.Notification),
		tombstones: make(map[string]struct{}),
		changes:    make(chan struct{}, 1),
	}
}

// Bind scopes the store to principalID, discarding everything held for the
// previous principal. Binding to "" leaves the store empty and unbound.
func (s *Store) Bind(principalID string) {
	s.mu.Lock()
	s.principal = principalID
	s.records = make(map[string]model.Notification)
	s.tombstones = make(map[string]struct{})
	s.status = Status{}
	s.mu.Unlock()
	s.notify()
}

// Principal returns the bound principal id.
func (s *Store) Principal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// Load replaces the whole set with the server's snapshot for principalID.
// On failure the previous set is kept and the error is recorded in Status.
func (s *Store) Load(ctx context.Context, principalID string) ([]model.Notification, error) {
	s.mu.Lock()
	if s.principal == "" {
		s.mu.Unlock()
		return nil, ErrUnbound
	}
	if s.principal != principalID {
		s.mu.Unlock()
		return nil, ErrStalePrincipal
	}
	s.status.Loading = true
	s.status.Err = nil
	s.mu.Unlock()
	s.notify()

	records, err := s.fetcher.Fetch(ctx, principalID)

	s.mu.Lock()
	if s.principal != principalID {
		s.mu.Unlock()
		s.logger.Debug("dropping stale load", "principal", principalID)
		return nil, ErrStalePrincipal
	}
	if err != nil {
		s.status.Loading = false
		s.status.Err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	next := make(map[string]model.Notification, len(records))
	for _, r := range records {
		if r.PrincipalID == "" {
			r.PrincipalID = principalID
		}
		if r.PrincipalID != principalID {
			s.logger.Warn("dropping snapshot record for another principal",
				"id", r.ID, "owner", r.PrincipalID)
			continue
		}
		if _, gone := s.tombstones[r.ID]; gone {
			continue
		}
		next[r.ID] = r.Clone()
	}
	s.records = next
	s.status = Status{LoadedAt: time.Now()}
	out := s.snapshotLocked()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// Insert adds r unless a record with the same id is present or was removed.
// It reports whether the set changed.
func (s *Store) Insert(r model.Notification) bool {
	s.mu.Lock()
	if s.principal == "" {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.records[r.ID]; ok {
		s.mu.Unlock()
		return false
	}
	if _, gone := s.tombstones[r.ID]; gone {
		s.mu.Unlock()
		return false
	}
	if r.PrincipalID == "" {
		r.PrincipalID = s.principal
	}
	s.records[r.ID] = r.Clone()
	s.mu.Unlock()

	s.notify()
	return true
}

// ApplyReadStatus sets IsRead on the listed records. Unknown ids are
// ignored. It returns how many records changed.
func (s *Store) ApplyReadStatus(ids []string, isRead bool) int {
	s.mu.Lock()
	changed := 0
	for _, id := range ids {
		r, ok := s.records[id]
		if !ok || r.IsRead == isRead {
			continue
		}
		r.IsRead = isRead
		s.records[id] = r
		changed++
	}
	s.mu.Unlock()

	if changed > 0 {
		s.notify()
	}
	return changed
}

// ApplyReadStatusAll sets IsRead on every record and returns how many changed.
func (s *Store) ApplyReadStatusAll(isRead bool) int {
	s.mu.Lock()
	changed := 0
	for id, r := range s.records {
		if r.IsRead == isRead {
			continue
		}
		r.IsRead = isRead
		s.records[id] = r
		changed++
	}
	s.mu.Unlock()

	if changed > 0 {
		s.notify()
	}
	return changed
}

// Remove deletes the record with id. Absence is not an error; it reports
// whether a record was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	if s.principal != "" {
		s.tombstones[id] = struct{}{}
	}
	_, ok := s.records[id]
	delete(s.records, id)
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

// Clear empties the set. The principal binding is kept.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make(map[string]model.Notification)
	s.status = Status{}
	s.mu.Unlock()
	s.notify()
}

// Get returns the record with id.
func (s *Store) Get(id string) (model.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return model.Notification{}, false
	}
	return r.Clone(), true
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a copy of all records, newest first. Ties on CreatedAt
// are broken by id so the order is deterministic.
func (s *Store) Snapshot() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []model.Notification {
	out := make([]model.Notification, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Status returns the outcome of the most recent load.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Changes returns a channel that receives a value after the store changes.
// Signals coalesce: a burst of mutations may produce a single receive.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// notify signals a change without blocking.
func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
