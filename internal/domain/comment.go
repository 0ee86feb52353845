package domain

import "time"

// CommentTombstone replaces the content of a soft-deleted comment. The row
// itself survives so replies keep a valid parent reference.
const CommentTombstone = "[This comment has been deleted]"

// Comment is a threaded message on a ticket. ParentID, when set, references
// another comment on the same ticket. Internal comments are staff-only notes
// invisible to end users.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	ParentID   *string
	Content    string
	IsInternal bool
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
