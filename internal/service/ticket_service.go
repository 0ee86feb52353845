package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	"github.com/SpectrexWizard/Q-Reserve/internal/config"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/events"
	"github.com/SpectrexWizard/Q-Reserve/internal/repository"
	"github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

// TicketService coordinates the ticket lifecycle: creation with SLA stamping,
// the permissive status machine, assignment, field edits, listing and the
// audit trail. Every mutation runs inside one transaction so the ticket and
// its audit row commit or roll back together.
type TicketService struct {
	store      *repository.Store
	tx         repository.TxRunner
	policy     *access.Policy
	sla        config.SLAConfig
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *repository.Store
	Tx         repository.TxRunner
	Policy     *access.Policy
	SLA        config.SLAConfig
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		tx:         deps.Tx,
		policy:     deps.Policy,
		sla:        deps.SLA,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload. Priority is the raw
// wire value; anything unrecognized falls back to medium.
type TicketCreateInput struct {
	Subject     string
	Description string
	CategoryID  string
	Priority    string
}

// TicketUpdateInput describes a staff update. Nil fields are untouched; for
// Assignee an empty string unassigns.
type TicketUpdateInput struct {
	Status   *string
	Priority *string
	Assignee *string
}

// TicketDetailsInput describes subject/description edits.
type TicketDetailsInput struct {
	Subject     *string
	Description *string
}

// TicketListFilter describes listing parameters; raw enum values are
// validated before they reach the query.
type TicketListFilter struct {
	Statuses   []string
	Priorities []string
	CategoryID *string
	AssigneeID *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// AttachmentInput carries attachment metadata; the bytes already live in
// external storage under StorageKey.
type AttachmentInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
}

// CreateTicket opens a new ticket for the actor. The due date is stamped
// from the SLA table at creation and never recomputed afterwards.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" {
		return nil, util.NewValidationError("subject is required", nil)
	}
	if description == "" {
		return nil, util.NewValidationError("description is required", nil)
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		return nil, util.NewValidationError("category is required", nil)
	}

	// Creation is the one path where an unknown priority is normalized to
	// medium instead of rejected.
	priority, ok := domain.ParseTicketPriority(input.Priority)
	if !ok {
		priority = domain.TicketPriorityMedium
	}

	var (
		ticket       *domain.Ticket
		categoryName string
	)
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		category, err := store.Categories.GetByID(ctx, input.CategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewValidationError("unknown category", map[string]any{"category_id": input.CategoryID})
			}
			return err
		}
		if !category.IsActive {
			return util.NewValidationError("category is inactive", map[string]any{"category_id": category.ID})
		}
		categoryName = category.Name

		due := time.Now().Add(s.sla.DueIn(string(priority)))
		ticket = &domain.Ticket{
			Subject:     subject,
			Description: description,
			Status:      domain.TicketStatusOpen,
			Priority:    priority,
			CreatorID:   actor.ID,
			CategoryID:  category.ID,
			DueDate:     &due,
		}
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			return err
		}

		return store.AuditLogs.Create(ctx, &domain.AuditLog{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.AuditActionCreated,
			Details: map[string]any{
				"subject":  ticket.Subject,
				"category": categoryName,
				"priority": string(ticket.Priority),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Subject:   ticket.Subject,
			Category:  categoryName,
			Priority:  ticket.Priority,
			DueDate:   ticket.DueDate,
			Recipient: eventRecipient(actor),
		},
	})
	return ticket, nil
}

// GetTicket fetches one ticket, enforcing view access.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !s.policy.CanViewTicket(actor, ticket) {
		return nil, util.NewForbidden("not allowed to view this ticket")
	}
	return ticket, nil
}

// ListTickets returns tickets scoped to what the actor may see: end users
// their own, agents per the visibility policy, admins everything.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	statuses := make([]domain.TicketStatus, 0, len(filter.Statuses))
	for _, raw := range filter.Statuses {
		status, ok := domain.ParseTicketStatus(raw)
		if !ok {
			return nil, util.NewValidationError("invalid status value", map[string]any{"status": raw})
		}
		statuses = append(statuses, status)
	}
	priorities := make([]domain.TicketPriority, 0, len(filter.Priorities))
	for _, raw := range filter.Priorities {
		priority, ok := domain.ParseTicketPriority(raw)
		if !ok {
			return nil, util.NewValidationError("invalid priority value", map[string]any{"priority": raw})
		}
		priorities = append(priorities, priority)
	}

	repoFilter := repository.TicketFilter{
		CategoryID: filter.CategoryID,
		AssigneeID: filter.AssigneeID,
		Statuses:   statuses,
		Priorities: priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	s.applyVisibilityScope(&repoFilter, actor)
	return s.store.Tickets.ListWithFilter(ctx, repoFilter)
}

// UpdateTicket applies a staff update to status, priority and/or assignment
// in one atomic operation. Any delta of the tracked fields (status,
// assignee) yields exactly one audit row; re-submitting current values is a
// no-op with no write and no audit entry.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		ticket          *domain.Ticket
		creator         *domain.User
		assigneeUser    *domain.User
		oldStatus       domain.TicketStatus
		statusChanged   bool
		assigneeChanged bool
	)
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		var err error
		ticket, err = store.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if !s.policy.CanModifyTicket(actor, ticket) {
			return util.NewForbidden("not allowed to modify this ticket")
		}

		changes := map[string]any{}
		now := time.Now()

		if input.Status != nil {
			status, ok := domain.ParseTicketStatus(*input.Status)
			if !ok {
				return util.NewValidationError("invalid status value", map[string]any{"status": *input.Status})
			}
			if status != ticket.Status {
				oldStatus = ticket.Status
				changes["status"] = map[string]any{"from": string(ticket.Status), "to": string(status)}
				ticket.Status = status
				statusChanged = true
				// Stamped exactly once, on the first entry into the state;
				// later transitions never re-stamp and nothing clears them.
				if status == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
					ticket.ResolvedAt = &now
				}
				if status == domain.TicketStatusClosed && ticket.ClosedAt == nil {
					ticket.ClosedAt = &now
				}
			}
		}

		priorityChanged := false
		if input.Priority != nil {
			priority, ok := domain.ParseTicketPriority(*input.Priority)
			if !ok {
				return util.NewValidationError("invalid priority value", map[string]any{"priority": *input.Priority})
			}
			if priority != ticket.Priority {
				// The due date keeps the window computed at creation.
				ticket.Priority = priority
				priorityChanged = true
			}
		}

		if input.Assignee != nil {
			target := strings.TrimSpace(*input.Assignee)
			if target == "" {
				if ticket.AssigneeID != nil {
					changes["assigned_to"] = map[string]any{"from": *ticket.AssigneeID, "to": nil}
					ticket.AssigneeID = nil
					assigneeChanged = true
				}
			} else {
				user, err := store.Users.GetByID(ctx, target)
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return util.NewValidationError("assignee must be an existing agent or admin", map[string]any{"assignee_id": target})
					}
					return err
				}
				if !user.CanBeAssignee() {
					return util.NewValidationError("assignee must be an active agent or admin", map[string]any{"assignee_id": target})
				}
				if !ticket.IsAssignedTo(user.ID) {
					var from any
					if ticket.AssigneeID != nil {
						from = *ticket.AssigneeID
					}
					changes["assigned_to"] = map[string]any{"from": from, "to": user.ID}
					ticket.AssigneeID = &user.ID
					assigneeChanged = true
					assigneeUser = user
				}
			}
		}

		if !statusChanged && !assigneeChanged && !priorityChanged {
			return nil
		}

		if err := store.Tickets.Update(ctx, ticket); err != nil {
			return err
		}

		// Only tracked fields reach the audit trail; a priority-only change
		// writes no audit row.
		if len(changes) > 0 {
			if err := store.AuditLogs.Create(ctx, &domain.AuditLog{
				TicketID: ticket.ID,
				ActorID:  actor.ID,
				Action:   domain.AuditActionUpdated,
				Details:  changes,
			}); err != nil {
				return err
			}
		}

		if statusChanged {
			creator, err = store.Users.GetByID(ctx, ticket.CreatorID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		payload := events.TicketStatusChangedPayload{
			Subject:   ticket.Subject,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		}
		if creator != nil {
			payload.Recipient = eventRecipient(creator)
		}
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    eventActor(actor),
			Payload:  payload,
		})
	}
	if assigneeChanged {
		payload := events.TicketAssignedPayload{
			Subject:    ticket.Subject,
			AssigneeID: ticket.AssigneeID,
		}
		if assigneeUser != nil {
			recipient := eventRecipient(assigneeUser)
			payload.Recipient = &recipient
		}
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    eventActor(actor),
			Payload:  payload,
		})
	}
	return ticket, nil
}

// UpdateStatus changes only the ticket status.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID, status string) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{Status: &status})
}

// Assign sets or clears the assignee; an empty assignee id unassigns.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{Assignee: &assigneeID})
}

// UpdateTicketDetails rewrites subject/description under the stricter edit
// rule: staff anytime, the creator only while the ticket is still open.
func (s *TicketService) UpdateTicketDetails(ctx context.Context, actor *domain.User, ticketID string, input TicketDetailsInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		var err error
		ticket, err = store.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if !s.policy.CanEditTicketFields(actor, ticket) {
			return util.NewForbidden("not allowed to edit this ticket")
		}

		changed := false
		if input.Subject != nil {
			subject := strings.TrimSpace(*input.Subject)
			if subject == "" {
				return util.NewValidationError("subject cannot be empty", nil)
			}
			if subject != ticket.Subject {
				ticket.Subject = subject
				changed = true
			}
		}
		if input.Description != nil {
			description := strings.TrimSpace(*input.Description)
			if description == "" {
				return util.NewValidationError("description cannot be empty", nil)
			}
			if description != ticket.Description {
				ticket.Description = description
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return store.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListAuditLog returns the append-only audit trail for a ticket.
func (s *TicketService) ListAuditLog(ctx context.Context, actor *domain.User, ticketID string) ([]domain.AuditLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.policy.CanViewAuditLog(actor) {
		return nil, util.NewForbidden("audit log access is admin-only")
	}
	if _, err := s.store.Tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return s.store.AuditLogs.ListByTicket(ctx, ticketID)
}

// AddAttachment records attachment metadata on a ticket.
func (s *TicketService) AddAttachment(ctx context.Context, actor *domain.User, ticketID string, input AttachmentInput) (*domain.Attachment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !s.policy.CanViewTicket(actor, ticket) {
		return nil, util.NewForbidden("not allowed to view this ticket")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, util.NewValidationError("file name is required", nil)
	}
	if strings.TrimSpace(input.StorageKey) == "" {
		return nil, util.NewValidationError("storage key is required", nil)
	}
	if input.SizeBytes < 0 {
		return nil, util.NewValidationError("size must not be negative", nil)
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment := &domain.Attachment{
		TicketID:    ticket.ID,
		UploaderID:  actor.ID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   input.SizeBytes,
		StorageKey:  strings.TrimSpace(input.StorageKey),
	}
	if err := s.store.Attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// ListAttachments returns attachment metadata for a ticket.
func (s *TicketService) ListAttachments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Attachment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !s.policy.CanViewTicket(actor, ticket) {
		return nil, util.NewForbidden("not allowed to view this ticket")
	}
	return s.store.Attachments.ListByTicket(ctx, ticketID)
}

// applyVisibilityScope narrows a listing query to the caller's visibility;
// list endpoints scope rather than deny.
func (s *TicketService) applyVisibilityScope(filter *repository.TicketFilter, actor *domain.User) {
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleAgent:
		if s.policy.AgentVisibility() == access.AgentVisibilityAssigned {
			filter.VisibleToUserID = &actor.ID
		}
	default:
		filter.CreatorID = &actor.ID
	}
}

func requireActor(actor *domain.User) error {
	if actor == nil {
		return util.NewUnauthorized("authentication required")
	}
	if !actor.IsActive {
		return util.NewForbidden("account is disabled")
	}
	return nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func eventActor(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func eventRecipient(user *domain.User) events.Recipient {
	return events.Recipient{UserID: user.ID, Username: user.Username, Email: user.Email}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
