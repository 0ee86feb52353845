package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
)

// VoteRepository encapsulates vote persistence. Create surfaces ErrDuplicate
// when the (ticket, user) uniqueness constraint fires, which is how a lost
// insert race reaches the service layer.
type VoteRepository interface {
	Create(ctx context.Context, vote *domain.Vote) error
	UpdateDirection(ctx context.Context, id string, isUpvote bool) error
	Delete(ctx context.Context, id string) error
	GetByTicketAndUser(ctx context.Context, ticketID, userID string) (*domain.Vote, error)
	Summarize(ctx context.Context, ticketID, userID string) (*domain.VoteSummary, error)
}

type voteRepository struct {
	db DBTX
}

// NewVoteRepository instantiates repository.
func NewVoteRepository(db DBTX) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	const query = `
        INSERT INTO votes (ticket_id, user_id, is_upvote)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		vote.TicketID,
		vote.UserID,
		vote.IsUpvote,
	).Scan(&vote.ID, &vote.CreatedAt, &vote.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *voteRepository) UpdateDirection(ctx context.Context, id string, isUpvote bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE votes SET is_upvote=$1, updated_at=NOW() WHERE id=$2`, isUpvote, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM votes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *voteRepository) GetByTicketAndUser(ctx context.Context, ticketID, userID string) (*domain.Vote, error) {
	const query = `
        SELECT id, ticket_id, user_id, is_upvote, created_at, updated_at
        FROM votes WHERE ticket_id=$1 AND user_id=$2`
	var vote domain.Vote
	if err := r.db.QueryRow(ctx, query, ticketID, userID).Scan(
		&vote.ID,
		&vote.TicketID,
		&vote.UserID,
		&vote.IsUpvote,
		&vote.CreatedAt,
		&vote.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &vote, nil
}

// Summarize recomputes the aggregate by counting. Scores are never cached;
// the ledger rows are the only source of truth.
func (r *voteRepository) Summarize(ctx context.Context, ticketID, userID string) (*domain.VoteSummary, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE is_upvote), COUNT(*) FILTER (WHERE NOT is_upvote)
        FROM votes WHERE ticket_id=$1`
	var upvotes, downvotes int
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(&upvotes, &downvotes); err != nil {
		return nil, err
	}

	summary := &domain.VoteSummary{
		Score:     upvotes - downvotes,
		Upvotes:   upvotes,
		Downvotes: downvotes,
	}

	if userID != "" {
		vote, err := r.GetByTicketAndUser(ctx, ticketID, userID)
		switch {
		case err == nil:
			summary.UserVote = &vote.IsUpvote
		case errors.Is(err, pgx.ErrNoRows):
			// no vote from this user
		default:
			return nil, err
		}
	}
	return summary, nil
}
