package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/repository"
	"github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

// VoteService keeps the one-vote-per-user ledger on tickets. Votes carry no
// audit rows and publish no events; the summary is the whole story.
type VoteService struct {
	store  *repository.Store
	tx     repository.TxRunner
	policy *access.Policy
}

// VoteDependencies bundles collaborators for the vote service.
type VoteDependencies struct {
	Store  *repository.Store
	Tx     repository.TxRunner
	Policy *access.Policy
}

// NewVoteService constructs the service.
func NewVoteService(deps VoteDependencies) *VoteService {
	return &VoteService{
		store:  deps.Store,
		tx:     deps.Tx,
		policy: deps.Policy,
	}
}

// ToggleVote applies one press of the vote button: no prior vote records it,
// the same direction removes it, the opposite direction flips it. Returns
// the outcome and the post-toggle summary.
func (s *VoteService) ToggleVote(ctx context.Context, actor *domain.User, ticketID string, isUpvote bool) (domain.VoteOutcome, *domain.VoteSummary, error) {
	if err := requireActor(actor); err != nil {
		return "", nil, err
	}

	var (
		outcome domain.VoteOutcome
		summary *domain.VoteSummary
	)
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		ticket, err := store.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if !s.policy.CanViewTicket(actor, ticket) {
			return util.NewForbidden("not allowed to view this ticket")
		}

		existing, err := store.Votes.GetByTicketAndUser(ctx, ticket.ID, actor.ID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			vote := &domain.Vote{TicketID: ticket.ID, UserID: actor.ID, IsUpvote: isUpvote}
			if err := store.Votes.Create(ctx, vote); err != nil {
				// Two concurrent first votes race on the unique constraint;
				// the loser reports a conflict rather than a double count.
				if errors.Is(err, repository.ErrDuplicate) {
					return util.NewConflict("vote already exists", map[string]any{"ticket_id": ticket.ID})
				}
				return err
			}
			outcome = domain.VoteOutcomeCreated
		case err != nil:
			return err
		case existing.IsUpvote == isUpvote:
			if err := store.Votes.Delete(ctx, existing.ID); err != nil {
				return err
			}
			outcome = domain.VoteOutcomeRemoved
		default:
			if err := store.Votes.UpdateDirection(ctx, existing.ID, isUpvote); err != nil {
				return err
			}
			outcome = domain.VoteOutcomeChanged
		}

		summary, err = store.Votes.Summarize(ctx, ticket.ID, actor.ID)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, summary, nil
}

// GetVoteSummary returns the score, per-direction counts and the actor's own
// vote for a ticket.
func (s *VoteService) GetVoteSummary(ctx context.Context, actor *domain.User, ticketID string) (*domain.VoteSummary, error) {
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
	return s.store.Votes.Summarize(ctx, ticketID, actor.ID)
}
