package dto

import "time"

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string  `json:"content"`
	IsInternal bool    `json:"is_internal"`
	ParentID   *string `json:"parent_id"`
}

// UpdateCommentRequest payload.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	ParentID   *string   `json:"parent_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	IsDeleted  bool      `json:"is_deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
