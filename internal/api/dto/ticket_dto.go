package dto

import (
	"encoding/json"
	"time"

	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Priority    string `json:"priority"`
}

// UpdateTicketRequest is the combined staff update. A missing assignee_id
// leaves assignment untouched; null or "" unassigns.
type UpdateTicketRequest struct {
	Status     *string        `json:"status"`
	Priority   *string        `json:"priority"`
	AssigneeID OptionalString `json:"assignee_id"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignTicketRequest payload; null or "" unassigns.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// UpdateTicketDetailsRequest payload.
type UpdateTicketDetailsRequest struct {
	Subject     *string `json:"subject"`
	Description *string `json:"description"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatorID   string                `json:"creator_id"`
	AssigneeID  *string               `json:"assignee_id"`
	CategoryID  string                `json:"category_id"`
	DueDate     *time.Time            `json:"due_date"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
	IsOverdue   bool                  `json:"is_overdue"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// AddAttachmentRequest describes attachment metadata; the bytes already live
// in external storage under storage_key.
type AddAttachmentRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	UploaderID  string    `json:"uploader_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditLogResponse is one audit trail entry.
type AuditLogResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	ActorID   string             `json:"actor_id"`
	Action    domain.AuditAction `json:"action"`
	Details   map[string]any     `json:"details"`
	CreatedAt time.Time          `json:"created_at"`
}

// OptionalString distinguishes an absent JSON field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON marks the field present and keeps null as a nil value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
