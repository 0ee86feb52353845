package domain

import "time"

// Attachment stores metadata for a file attached to a ticket. Bytes live in
// external storage under StorageKey; this service never handles them.
type Attachment struct {
	ID          string
	TicketID    string
	UploaderID  string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	CreatedAt   time.Time
}
