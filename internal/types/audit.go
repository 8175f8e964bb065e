package types

import "time"

// AuditEvent is one append-only audit trail entry. Every mutation the
// backend performs writes one, including the two engine operations.
type AuditEvent struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"` // "category", "document", "batch", "scan_record"
	EntityID   int64     `json:"entity_id"`
	EventType  EventType `json:"event_type"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventType categorizes audit trail entries
type EventType string

const (
	EventCreated   EventType = "created"
	EventDeleted   EventType = "deleted"
	EventAllocated EventType = "allocated"
	EventVerified  EventType = "verified"
)

// IsValid checks if the event type value is valid
func (e EventType) IsValid() bool {
	switch e {
	case EventCreated, EventDeleted, EventAllocated, EventVerified:
		return true
	}
	return false
}
