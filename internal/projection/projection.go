// Package projection derives read-only views from a notification snapshot.
// Every function is pure: it never mutates its input and caches nothing, so
// callers recompute after each store change.
package projection

import (
	"sort"
	"strings"

	"github.com/nhle/notification-inbox/internal/model"
)

// TypeAll matches every notification type.
const TypeAll = "all"

// Filter parameterizes Filtered.
type Filter struct {
	// Type is TypeAll (or empty) or one of the model.Type* values.
	Type string

	// Search is matched case-insensitively against title and message.
	Search string

	// SortByPriority orders by priority rank before recency.
	SortByPriority bool
}

// IsZero reports whether f keeps every record in recency order.
func (f Filter) IsZero() bool {
	return (f.Type == "" || f.Type == TypeAll) && f.Search == "" && !f.SortByPriority
}

// UnreadCount returns the number of unread records.
func UnreadCount(records []model.Notification) int {
	n := 0
	for _, r := range records {
		if !r.IsRead {
			n++
		}
	}
	return n
}

// Latest returns the n most recent records, newest first.
func Latest(records []model.Notification, n int) []model.Notification {
	if n <= 0 {
		return []model.Notification{}
	}
	out := copyOf(records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Filtered keeps the records matching f and orders them. With
// SortByPriority the primary key is priority rank descending and the
// tie-break is CreatedAt descending; otherwise CreatedAt descending alone.
func Filtered(records []model.Notification, f Filter) []model.Notification {
	search := strings.ToLower(f.Search)
	out := make([]model.Notification, 0, len(records))
	for _, r := range records {
		if !matchesType(r, f.Type) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Message), search) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.SortByPriority {
			pi, pj := out[i].Priority.Rank(), out[j].Priority.Rank()
			if pi != pj {
				return pi > pj
			}
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matchesType(r model.Notification, typ string) bool {
	return typ == "" || typ == TypeAll || string(r.Type) == typ
}

func copyOf(records []model.Notification) []model.Notification {
	out := make([]model.Notification, len(records))
	copy(out, records)
	return out
}

// TypeLabel renders a type for display: underscores become spaces and each
// word is capitalized (job_post_status -> "Job Post Status").
func TypeLabel(t model.NotificationType) string {
	words := strings.Fields(strings.ReplaceAll(string(t), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FilterLabel is the short name used by the type filter selector.
func FilterLabel(typ string) string {
	switch typ {
	case "", TypeAll:
		return "All Types"
	case string(model.TypeApplication):
		return "Applicants"
	case string(model.TypeInterview):
		return "Interviews"
	case string(model.TypeFeedback):
		return "Feedback"
	case string(model.TypeJobPostStatus):
		return "Job Post Status"
	case string(model.TypeSuspiciousActivity):
		return "Suspicious Activity"
	default:
		return TypeLabel(model.NotificationType(typ))
	}
}

// FilterTypes lists the type filter values in selector order.
func FilterTypes() []string {
	out := []string{TypeAll}
	for _, t := range model.NotificationTypes {
		out = append(out, string(t))
	}
	return out
}

// NextFilterType cycles to the filter value after current.
func NextFilterType(current string) string {
	types := FilterTypes()
	for i, t := range types {
		if t == current {
			return types[(i+1)%len(types)]
		}
	}
	return TypeAll
}
