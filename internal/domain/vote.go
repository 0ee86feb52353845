package domain

import "time"

// VoteOutcome describes what a toggle call did to the caller's vote.
type VoteOutcome string

const (
	VoteOutcomeCreated VoteOutcome = "created"
	VoteOutcomeRemoved VoteOutcome = "removed"
	VoteOutcomeChanged VoteOutcome = "changed"
)

// Vote is one user's vote on one ticket. The (ticket, user) pair is unique;
// the storage constraint is the authoritative arbiter under concurrency.
type Vote struct {
	ID        string
	TicketID  string
	UserID    string
	IsUpvote  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoteSummary is the aggregate view of a ticket's votes, recomputed by
// counting on every read and never cached.
type VoteSummary struct {
	Score     int
	Upvotes   int
	Downvotes int
	UserVote  *bool
}
