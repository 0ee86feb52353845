package events

import (
	"time"

	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// Recipient is the denormalized delivery target so consumers can render and
// send without a lookup round trip.
type Recipient struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject   string                `json:"subject"`
	Category  string                `json:"category"`
	Priority  domain.TicketPriority `json:"priority"`
	DueDate   *time.Time            `json:"due_date,omitempty"`
	Recipient Recipient             `json:"recipient"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Subject   string              `json:"subject"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Recipient Recipient           `json:"recipient"`
}

// TicketAssignedPayload payload. Recipient is the new assignee; an
// unassignment carries no recipient.
type TicketAssignedPayload struct {
	Subject    string     `json:"subject"`
	AssigneeID *string    `json:"assignee_id,omitempty"`
	Recipient  *Recipient `json:"recipient,omitempty"`
}

// TicketCommentAddedPayload payload. Recipient is the ticket creator;
// internal comments and the creator's own comments are never published.
type TicketCommentAddedPayload struct {
	Subject     string    `json:"subject"`
	CommentID   string    `json:"comment_id"`
	BodyPreview string    `json:"body_preview"`
	Recipient   Recipient `json:"recipient"`
}
