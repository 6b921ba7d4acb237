package domain

import (
	"context"
	"time"
)

// Notification is a per-user notification record. It is created unread and
// only ever mutated by the bulk mark-all-read operation.
type Notification struct {
	ID        string    `json:"id"`
	Recipient string    `json:"userId"`
	Text      string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"timestamp"`
}

// NotificationStore is the contract for durable notification persistence.
type NotificationStore interface {
	// Create persists a new unread notification for the recipient.
	Create(ctx context.Context, recipient, text string) (*Notification, error)

	// ListUnread returns the recipient's unread notifications, newest first.
	ListUnread(ctx context.Context, recipient string) ([]Notification, error)

	// MarkAllRead marks every unread notification of the recipient as read
	// and returns the number of records affected.
	MarkAllRead(ctx context.Context, recipient string) (int, error)
}
