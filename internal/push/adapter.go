package push

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/nhle/notification-inbox/internal/model"
)

// Target is the set of store mutations the adapter drives.
type Target interface {
	Insert(r model.Notification) bool
	ApplyReadStatus(ids []string, isRead bool) int
	ApplyReadStatusAll(isRead bool) int
	Remove(id string) bool
}

// Adapter turns push events into exactly one store call each. It is bound
// to one principal for its whole life; events addressed to anyone else are
// dropped before they reach the store.
type Adapter struct {
	principalID string
	target      Target
	logger      *slog.Logger
	applied     atomic.Int64
	dropped     atomic.Int64
}

// NewAdapter creates an adapter scoped to principalID.
func NewAdapter(principalID string, t Target, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		principalID: principalID,
		target:      t,
		logger:      logger.With("principal", principalID),
	}
}

// Apply routes a single event. It reports false when the event was
// discarded for being addressed to another principal.
func (a *Adapter) Apply(ev Event) bool {
	if a.principalID == "" || ev.Principal() != a.principalID {
		a.dropped.Add(1)
		a.logger.Debug("skipping push event for another principal", "event_principal", ev.Principal())
		return false
	}

	switch e := ev.(type) {
	case NewEvent:
		a.target.Insert(e.Record)
	case ReadStatusEvent:
		if e.All {
			a.target.ApplyReadStatusAll(e.IsRead)
		} else if len(e.IDs) > 0 {
			a.target.ApplyReadStatus(e.IDs, e.IsRead)
		}
	case DeletedEvent:
		a.target.Remove(e.ID)
	default:
		a.dropped.Add(1)
		a.logger.Warn("unhandled push event", "type", ev)
		return false
	}

	a.applied.Add(1)
	return true
}

// Run applies events one at a time until the channel closes or ctx is
// cancelled.
func (a *Adapter) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.Apply(ev)
		}
	}
}

// Stats returns how many events were applied and dropped so far.
func (a *Adapter) Stats() (applied, dropped int64) {
	return a.applied.Load(), a.dropped.Load()
}
