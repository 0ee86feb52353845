package dto

import "github.com/SpectrexWizard/Q-Reserve/internal/domain"

// VoteRequest payload; is_upvote is required.
type VoteRequest struct {
	IsUpvote *bool `json:"is_upvote"`
}

// VoteSummaryResponse aggregates a ticket's votes. user_vote is the caller's
// own direction, null when they have not voted.
type VoteSummaryResponse struct {
	Score     int   `json:"score"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
	UserVote  *bool `json:"user_vote"`
}

// VoteToggleResponse reports the toggle outcome plus the fresh summary.
type VoteToggleResponse struct {
	Outcome domain.VoteOutcome  `json:"outcome"`
	Summary VoteSummaryResponse `json:"summary"`
}
