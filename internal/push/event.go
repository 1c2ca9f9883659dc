package push

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nhle/notification-inbox/internal/model"
)

// Wire event names emitted by the server.
const (
	wireNewNotification      = "newNotification"
	wireNotificationsUpdated = "notificationsUpdated"
	wireNotificationDeleted  = "notificationDeleted"
	wireRegisterUser         = "registerUser"

	updateMarkAll      = "markAll"
	updateMarkSpecific = "markSpecific"
)

// ErrUnknownEvent is returned by DecodeFrame for event names this client
// does not handle.
var ErrUnknownEvent = errors.New("push: unknown event")

// Event is a server-initiated change to the notification set. Principal
// names the user the event is addressed to.
type Event interface {
	Principal() string
}

// NewEvent announces a freshly created notification.
type NewEvent struct {
	Record model.Notification
}

// Principal returns the record's owner.
func (e NewEvent) Principal() string { return e.Record.PrincipalID }

// ReadStatusEvent confirms a read/unread change, either for every record
// (All) or for the listed IDs.
type ReadStatusEvent struct {
	PrincipalID string
	All         bool
	IDs         []string
	IsRead      bool
}

// Principal returns the addressed user.
func (e ReadStatusEvent) Principal() string { return e.PrincipalID }

// DeletedEvent confirms a deletion.
type DeletedEvent struct {
	PrincipalID string
	ID          string
}

// Principal returns the addressed user.
func (e DeletedEvent) Principal() string { return e.PrincipalID }

// frame is the envelope every push message travels in.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type updatedPayload struct {
	Type            string   `json:"type"`
	NotificationIDs []string `json:"notificationIds"`
	IsRead          bool     `json:"isRead"`
	UserID          string   `json:"userId"`
}

type deletedPayload struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// DecodeFrame parses one push message into a typed Event.
func DecodeFrame(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding push frame: %w", err)
	}

	switch f.Event {
	case wireNewNotification:
		var r model.Notification
		if err := json.Unmarshal(f.Data, &r); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.Event, err)
		}
		return NewEvent{Record: r}, nil

	case wireNotificationsUpdated:
		var p updatedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.Event, err)
		}
		switch p.Type {
		case updateMarkAll:
			return ReadStatusEvent{PrincipalID: p.UserID, All: true, IsRead: p.IsRead}, nil
		case updateMarkSpecific:
			return ReadStatusEvent{PrincipalID: p.UserID, IDs: p.NotificationIDs, IsRead: p.IsRead}, nil
		default:
			return nil, fmt.Errorf("%w: %s type %q", ErrUnknownEvent, f.Event, p.Type)
		}

	case wireNotificationDeleted:
		var p deletedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.Event, err)
		}
		return DeletedEvent{PrincipalID: p.UserID, ID: p.ID}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

// registerFrame builds the message a client sends right after connecting.
func registerFrame(principalID string) frame {
	data, _ := json.Marshal(principalID)
	return frame{Event: wireRegisterUser, Data: data}
}
