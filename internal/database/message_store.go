package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/teamgrid/teamgrid/internal/domain"
)

// chatMessageRecord is the SurrealDB shape of a chat message. The wire/domain
// shape lives in domain.ChatMessage; the two are kept separate so the schema
// can evolve without leaking into the event payloads.
type chatMessageRecord struct {
	MessageID string    `json:"message_id"`
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

func (rec chatMessageRecord) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        rec.MessageID,
		Room:      rec.Room,
		Sender:    rec.Sender,
		Text:      rec.Text,
		Seq:       rec.Seq,
		CreatedAt: rec.CreatedAt,
	}
}

// MessageStore persists chat messages in SurrealDB. Each message gets a
// process-wide monotonically increasing sequence number, so retrieval order
// matches persistence order even when two users append to the same room
// concurrently. The design assumes a single process owns the table.
type MessageStore struct {
	db     *surrealdb.DB
	seq    atomic.Int64
	logger *slog.Logger
}

var _ domain.MessageStore = (*MessageStore)(nil)

// NewMessageStore creates the store and seeds the sequence counter from the
// highest persisted sequence, so ordering survives restarts.
func NewMessageStore(ctx context.Context, db *surrealdb.DB) (*MessageStore, error) {
	s := &MessageStore{
		db:     db,
		logger: slog.Default().With("service", "message_store"),
	}

	type maxSeq struct {
		Seq int64 `json:"seq"`
	}
	row, err := QueryOne[maxSeq](ctx, db, "SELECT math::max(seq) AS seq FROM chat_message GROUP ALL", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to seed message sequence: %w", err)
	}
	if row != nil {
		s.seq.Store(row.Seq)
	}

	return s, nil
}

// Append validates and persists a new message. The caller-supplied timestamp
// is kept for display when present, but ordering is governed by the assigned
// sequence.
func (s *MessageStore) Append(ctx context.Context, room, sender, text string, ts time.Time) (*domain.ChatMessage, error) {
	trimmed, err := domain.ValidateMessageText(text)
	if err != nil {
		return nil, err
	}

	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	rec := chatMessageRecord{
		MessageID: uuid.NewString(),
		Room:      room,
		Sender:    sender,
		Text:      trimmed,
		Seq:       s.seq.Add(1),
		CreatedAt: ts.UTC(),
	}

	query := `CREATE chat_message SET
		message_id = $message_id,
		room = $room,
		sender = $sender,
		text = $text,
		seq = $seq,
		created_at = $created_at`
	params := map[string]any{
		"message_id": rec.MessageID,
		"room":       rec.Room,
		"sender":     rec.Sender,
		"text":       rec.Text,
		"seq":        rec.Seq,
		"created_at": rec.CreatedAt,
	}

	if err := Execute(ctx, s.db, query, params); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	msg := rec.toDomain()
	return &msg, nil
}

// ListRecent selects pages newest-first by sequence and returns each page in
// chronological order. Page 1 is the most recent pageSize messages.
func (s *MessageStore) ListRecent(ctx context.Context, room string, page, pageSize int) ([]domain.ChatMessage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	query := "SELECT * FROM chat_message WHERE room = $room ORDER BY seq DESC LIMIT $limit START $start"
	params := map[string]any{
		"room":  room,
		"limit": pageSize,
		"start": (page - 1) * pageSize,
	}

	records, err := Query[chatMessageRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Newest-first from the store; reverse for chronological display.
	messages := make([]domain.ChatMessage, len(records))
	for i, rec := range records {
		messages[len(records)-1-i] = rec.toDomain()
	}
	return messages, nil
}

// Get returns a message by its public id.
func (s *MessageStore) Get(ctx context.Context, messageID string) (*domain.ChatMessage, error) {
	rec, err := QueryOne[chatMessageRecord](ctx, s.db, "SELECT * FROM chat_message WHERE message_id = $message_id", map[string]any{"message_id": messageID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}

	msg := rec.toDomain()
	return &msg, nil
}

// Delete hard-deletes a message after verifying the requester is the sender.
func (s *MessageStore) Delete(ctx context.Context, messageID, requesterID string) error {
	msg, err := s.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Sender != requesterID {
		return domain.ErrForbidden
	}

	if err := Execute(ctx, s.db, "DELETE chat_message WHERE message_id = $message_id", map[string]any{"message_id": messageID}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.logger.Info("Message deleted", "message_id", messageID, "requester", requesterID)
	return nil
}
