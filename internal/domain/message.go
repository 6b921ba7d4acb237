package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the maximum number of characters a chat message may
// contain after trimming.
const MaxMessageLength = 500

// ChatMessage is a persisted chat message scoped to a single room. Messages
// are immutable once persisted; the only mutation is a hard delete.
type ChatMessage struct {
	ID        string    `json:"id"`
	Room      string    `json:"roomId"`
	Sender    string    `json:"senderId"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"timestamp"`
}

// ValidateMessageText trims the text and checks the length bounds. It returns
// the trimmed text, or ErrEmptyMessage / ErrMessageTooLong.
//
// The length cap applies to the untrimmed input, matching the boundary the
// clients validate against.
func ValidateMessageText(text string) (string, error) {
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	return trimmed, nil
}

// MessageStore is the contract for durable, append-only chat message
// persistence. Implementations must assign each appended message a
// monotonically increasing sequence number so that retrieval order matches
// persistence order even under concurrent writers.
type MessageStore interface {
	// Append validates, persists and returns the new message. The caller
	// supplied timestamp is accepted but the persisted timestamp and
	// sequence govern retrieval order.
	Append(ctx context.Context, room, sender, text string, ts time.Time) (*ChatMessage, error)

	// ListRecent selects pages newest-first by sequence and returns each
	// page oldest-to-newest for chronological display. Page 1 holds the
	// most recent pageSize messages.
	ListRecent(ctx context.Context, room string, page, pageSize int) ([]ChatMessage, error)

	// Get returns a message by id, or ErrNotFound.
	Get(ctx context.Context, messageID string) (*ChatMessage, error)

	// Delete hard-deletes a message. It returns ErrNotFound if the message
	// does not exist and ErrForbidden if the requester is not the sender.
	Delete(ctx context.Context, messageID, requesterID string) error
}
