package domain

import "time"

// AuditAction tags what an audit entry records.
type AuditAction string

const (
	AuditActionCreated AuditAction = "created"
	AuditActionUpdated AuditAction = "updated"
)

// AuditLog is an immutable audit trail entry. Created entries carry a
// snapshot of the new ticket; updated entries carry a {field: {from, to}}
// diff of only the fields that actually changed.
type AuditLog struct {
	ID        string
	TicketID  string
	ActorID   string
	Action    AuditAction
	Details   map[string]any
	CreatedAt time.Time
}
