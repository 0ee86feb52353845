package domain

import "time"

// Category classifies tickets. Categories are never hard-deleted while
// tickets reference them; they are deactivated instead.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
