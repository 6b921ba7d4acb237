package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/teamgrid/teamgrid/internal/domain"
)

// notificationRecord is the SurrealDB shape of a notification.
type notificationRecord struct {
	NotificationID string    `json:"notification_id"`
	Recipient      string    `json:"recipient"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

func (rec notificationRecord) toDomain() domain.Notification {
	return domain.Notification{
		ID:        rec.NotificationID,
		Recipient: rec.Recipient,
		Text:      rec.Text,
		Read:      rec.Read,
		CreatedAt: rec.CreatedAt,
	}
}

// NotificationStore persists per-user notifications in SurrealDB.
type NotificationStore struct {
	db     *surrealdb.DB
	logger *slog.Logger
}

var _ domain.NotificationStore = (*NotificationStore)(nil)

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(db *surrealdb.DB) *NotificationStore {
	return &NotificationStore{
		db:     db,
		logger: slog.Default().With("service", "notification_store"),
	}
}

// Create persists a new unread notification.
func (s *NotificationStore) Create(ctx context.Context, recipient, text string) (*domain.Notification, error) {
	if recipient == "" {
		return nil, fmt.Errorf("notification recipient must not be empty")
	}

	rec := notificationRecord{
		NotificationID: uuid.NewString(),
		Recipient:      recipient,
		Text:           text,
		Read:           false,
		CreatedAt:      time.Now().UTC(),
	}

	query := `CREATE notification SET
		notification_id = $notification_id,
		recipient = $recipient,
		text = $text,
		read = $read,
		created_at = $created_at`
	params := map[string]any{
		"notification_id": rec.NotificationID,
		"recipient":       rec.Recipient,
		"text":            rec.Text,
		"read":            rec.Read,
		"created_at":      rec.CreatedAt,
	}

	if err := Execute(ctx, s.db, query, params); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	n := rec.toDomain()
	return &n, nil
}

// ListUnread returns the recipient's unread notifications, newest first.
func (s *NotificationStore) ListUnread(ctx context.Context, recipient string) ([]domain.Notification, error) {
	query := "SELECT * FROM notification WHERE recipient = $recipient AND read = false ORDER BY created_at DESC"
	records, err := Query[notificationRecord](ctx, s.db, query, map[string]any{"recipient": recipient})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	notifications := make([]domain.Notification, len(records))
	for i, rec := range records {
		notifications[i] = rec.toDomain()
	}
	return notifications, nil
}

// MarkAllRead marks every unread notification of the recipient as read and
// returns the number of records affected.
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipient string) (int, error) {
	query := "UPDATE notification SET read = true WHERE recipient = $recipient AND read = false RETURN AFTER"
	updated, err := Query[notificationRecord](ctx, s.db, query, map[string]any{"recipient": recipient})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	s.logger.Debug("Notifications marked read", "recipient", recipient, "count", len(updated))
	return len(updated), nil
}
