package model

import (
	"encoding/json"
	"strings"
	"time"
)

// NotificationType identifies the kind of hiring event a notification
// reports.
type NotificationType string

const (
	TypeApplication        NotificationType = "application"
	TypeInterview          NotificationType = "interview"
	TypeFeedback           NotificationType = "feedback"
	TypeJobPostStatus      NotificationType = "job_post_status"
	TypeSuspiciousActivity NotificationType = "suspicious_activity"
	TypeOther              NotificationType = "other"
)

// NotificationTypes lists the known types in display order.
var NotificationTypes = []NotificationType{
	TypeApplication,
	TypeInterview,
	TypeFeedback,
	TypeJobPostStatus,
	TypeSuspiciousActivity,
}

// ParseNotificationType maps a wire value to a NotificationType.
// Anything unrecognized becomes TypeOther.
func ParseNotificationType(s string) NotificationType {
	t := NotificationType(strings.TrimSpace(s))
	for _, known := range NotificationTypes {
		if t == known {
			return t
		}
	}
	return TypeOther
}

// UnmarshalJSON decodes a type string, folding unknown values into TypeOther.
func (t *NotificationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseNotificationType(s)
	return nil
}

// Priority is the AI-assigned urgency of a notification. The zero value
// means the notification is unranked.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting: high=3, medium=2, low=1, unranked=0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// UnmarshalJSON decodes a priority string. Unknown or null values are
// treated as unranked.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*p = PriorityNone
		return nil
	}
	switch v := Priority(strings.ToLower(strings.TrimSpace(*s))); v {
	case PriorityHigh, PriorityMedium, PriorityLow:
		*p = v
	default:
		*p = PriorityNone
	}
	return nil
}

// Notification is a single inbox record owned by one principal. Field tags
// follow the backend's wire format.
type Notification struct {
	// ID is stable and unique within a principal's set.
	ID string `json:"_id"`

	// PrincipalID is the owning user.
	PrincipalID string `json:"userId"`

	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`

	CreatedAt time.Time `json:"createdAt"`

	// IsRead changes only through mark operations or confirming events.
	IsRead bool `json:"isRead"`

	Priority       Priority `json:"priority,omitempty"`
	PriorityReason string   `json:"priorityReason,omitempty"`

	// SuggestedActions are AI-generated next steps, in display order.
	SuggestedActions []string `json:"suggestedActions,omitempty"`

	// Link is an optional URI pointing at the underlying item.
	Link string `json:"link,omitempty"`
}

// Clone returns a deep copy so callers can't alias the actions slice.
func (n Notification) Clone() Notification {
	if n.SuggestedActions != nil {
		actions := make([]string, len(n.SuggestedActions))
		copy(actions, n.SuggestedActions)
		n.SuggestedActions = actions
	}
	return n
}
