package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when an insert or update trips a uniqueness
// constraint. The vote race arbiter depends on it: two requests racing to
// insert the first vote both see "no vote", and the loser gets this.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// DBTX abstracts the pgx calls shared by *pgxpool.Pool and pgx.Tx so every
// repository works both on the pool and inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles all repositories over one DBTX. A pool-backed Store serves
// plain reads; TxManager.InTx hands mutations a tx-backed Store.
type Store struct {
	Users       UserRepository
	Categories  CategoryRepository
	Tickets     TicketRepository
	Comments    CommentRepository
	Votes       VoteRepository
	Attachments AttachmentRepository
	AuditLogs   AuditLogRepository
}

// NewStore builds a Store whose repositories all run on db.
func NewStore(db DBTX) *Store {
	return &Store{
		Users:       NewUserRepository(db),
		Categories:  NewCategoryRepository(db),
		Tickets:     NewTicketRepository(db),
		Comments:    NewCommentRepository(db),
		Votes:       NewVoteRepository(db),
		Attachments: NewAttachmentRepository(db),
		AuditLogs:   NewAuditLogRepository(db),
	}
}
