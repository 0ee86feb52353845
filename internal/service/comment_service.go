package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/events"
	"github.com/SpectrexWizard/Q-Reserve/internal/repository"
	"github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

const commentPreviewLength = 120

// CommentService manages the discussion thread under a ticket: public and
// internal comments, edits and tombstone deletes.
type CommentService struct {
	store      *repository.Store
	tx         repository.TxRunner
	policy     *access.Policy
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	Store      *repository.Store
	Tx         repository.TxRunner
	Policy     *access.Policy
	Dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		store:      deps.Store,
		tx:         deps.Tx,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
	}
}

// CommentCreateInput describes a new comment. ParentID threads the comment
// under an existing one on the same ticket.
type CommentCreateInput struct {
	Content    string
	IsInternal bool
	ParentID   *string
}

// CreateComment posts a comment on a ticket the actor can view. Non-staff
// requests for internal comments are silently downgraded to public, and a
// parent reference that does not resolve on this ticket is silently dropped.
func (s *CommentService) CreateComment(ctx context.Context, actor *domain.User, ticketID string, input CommentCreateInput) (*domain.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, util.NewValidationError("content is required", nil)
	}

	isInternal := input.IsInternal && actor.Role.IsStaff()

	var (
		comment *domain.Comment
		ticket  *domain.Ticket
		creator *domain.User
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
		if !s.policy.CanViewTicket(actor, ticket) {
			return util.NewForbidden("not allowed to view this ticket")
		}

		var parentID *string
		if input.ParentID != nil && *input.ParentID != "" {
			parent, err := store.Comments.GetByID(ctx, *input.ParentID)
			switch {
			case err == nil && parent.TicketID == ticket.ID:
				parentID = &parent.ID
			case err != nil && !errors.Is(err, pgx.ErrNoRows):
				return err
			}
		}

		comment = &domain.Comment{
			TicketID:   ticket.ID,
			AuthorID:   actor.ID,
			ParentID:   parentID,
			Content:    content,
			IsInternal: isInternal,
		}
		if err := store.Comments.Create(ctx, comment); err != nil {
			return err
		}
		// A new comment counts as ticket activity.
		if err := store.Tickets.Touch(ctx, ticket.ID); err != nil {
			return err
		}

		// The creator is only notified about public comments from others.
		if !comment.IsInternal && ticket.CreatorID != actor.ID {
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

	if creator != nil {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketCommentAdded,
			TicketID: ticket.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketCommentAddedPayload{
				Subject:     ticket.Subject,
				CommentID:   comment.ID,
				BodyPreview: stringPreview(comment.Content, commentPreviewLength),
				Recipient:   eventRecipient(creator),
			},
		})
	}
	return comment, nil
}

// EditComment replaces a comment's content. Only the author or an admin may
// edit, and a deleted comment stays frozen.
func (s *CommentService) EditComment(ctx context.Context, actor *domain.User, commentID, content string) (*domain.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, util.NewValidationError("content is required", nil)
	}

	var comment *domain.Comment
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		var err error
		comment, err = store.Comments.GetByID(ctx, commentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("comment", map[string]any{"comment_id": commentID})
			}
			return err
		}
		if !s.policy.CanEditComment(actor, comment) {
			return util.NewForbidden("not allowed to edit this comment")
		}
		if comment.IsDeleted {
			return util.NewConflict("comment has been deleted", nil)
		}
		comment.Content = trimmed
		return store.Comments.Update(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment replaces a comment with the tombstone text, keeping the
// thread shape intact. Deleting an already-deleted comment is a no-op.
func (s *CommentService) DeleteComment(ctx context.Context, actor *domain.User, commentID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(store *repository.Store) error {
		comment, err := store.Comments.GetByID(ctx, commentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("comment", map[string]any{"comment_id": commentID})
			}
			return err
		}
		if !s.policy.CanEditComment(actor, comment) {
			return util.NewForbidden("not allowed to delete this comment")
		}
		if comment.IsDeleted {
			return nil
		}
		comment.Content = domain.CommentTombstone
		comment.IsDeleted = true
		return store.Comments.Update(ctx, comment)
	})
}

// ListComments returns a ticket's thread in chronological order. Internal
// comments are filtered out for non-staff readers.
func (s *CommentService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
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
	return s.store.Comments.ListByTicket(ctx, ticketID, actor.Role.IsStaff())
}
