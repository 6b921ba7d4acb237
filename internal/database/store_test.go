package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go"
	"github.com/teamgrid/teamgrid/internal/domain"
	"github.com/teamgrid/teamgrid/internal/testutils"
)

// setupTestDB connects to the database configured by .env.test. The test is
// skipped when no test environment is available.
func setupTestDB(t *testing.T) *surrealdb.DB {
	t.Helper()

	cfg := testutils.ConfigForTests(t)
	ctx := context.Background()

	db, err := NewDB(ctx, cfg)
	require.NoError(t, err, "failed to connect to test database")

	t.Cleanup(func() {
		db.Close(context.Background())
	})
	return db
}

func newTestMessageStore(t *testing.T, db *surrealdb.DB) *MessageStore {
	t.Helper()

	store, err := NewMessageStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

// uniqueRoom isolates each test run's records and registers their cleanup.
func uniqueRoom(t *testing.T, db *surrealdb.DB) string {
	t.Helper()

	room := "test-room-" + uuid.NewString()
	t.Cleanup(func() {
		_ = Execute(context.Background(), db, "DELETE chat_message WHERE room = $room", map[string]any{"room": room})
	})
	return room
}

func uniqueRecipient(t *testing.T, db *surrealdb.DB) string {
	t.Helper()

	recipient := "test-user-" + uuid.NewString()
	t.Cleanup(func() {
		_ = Execute(context.Background(), db, "DELETE notification WHERE recipient = $recipient", map[string]any{"recipient": recipient})
	})
	return recipient
}

func TestMessageStore_AppendAndListRecent(t *testing.T) {
	db := setupTestDB(t)
	store := newTestMessageStore(t, db)
	ctx := context.Background()
	room := uniqueRoom(t, db)

	var ids []string
	for i := 1; i <= 3; i++ {
		msg, err := store.Append(ctx, room, "alice", fmt.Sprintf("message %d", i), time.Time{})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Text)
		ids = append(ids, msg.ID)
	}

	got, err := store.ListRecent(ctx, room, 1, 50)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Chronological order, and strictly increasing sequence.
	for i, msg := range got {
		assert.Equal(t, ids[i], msg.ID)
		assert.Equal(t, fmt.Sprintf("message %d", i+1), msg.Text)
		if i > 0 {
			assert.Greater(t, msg.Seq, got[i-1].Seq)
		}
	}
}

func TestMessageStore_Pagination(t *testing.T) {
	db := setupTestDB(t)
	store := newTestMessageStore(t, db)
	ctx := context.Background()
	room := uniqueRoom(t, db)

	for i := 1; i <= 5; i++ {
		_, err := store.Append(ctx, room, "alice", fmt.Sprintf("message %d", i), time.Time{})
		require.NoError(t, err)
	}

	// Page 1 holds the newest two, oldest first within the page.
	page1, err := store.ListRecent(ctx, room, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "message 4", page1[0].Text)
	assert.Equal(t, "message 5", page1[1].Text)

	page2, err := store.ListRecent(ctx, room, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "message 2", page2[0].Text)
	assert.Equal(t, "message 3", page2[1].Text)

	page3, err := store.ListRecent(ctx, room, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "message 1", page3[0].Text)
}

func TestMessageStore_GetAndDelete(t *testing.T) {
	db := setupTestDB(t)
	store := newTestMessageStore(t, db)
	ctx := context.Background()
	room := uniqueRoom(t, db)

	msg, err := store.Append(ctx, room, "alice", "to be removed", time.Time{})
	require.NoError(t, err)

	got, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "to be removed", got.Text)

	// Only the sender may delete.
	err = store.Delete(ctx, msg.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = store.Delete(ctx, msg.ID, "alice")
	require.NoError(t, err)

	_, err = store.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Delete(ctx, msg.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMessageStore_RejectsInvalidText(t *testing.T) {
	db := setupTestDB(t)
	store := newTestMessageStore(t, db)
	ctx := context.Background()
	room := uniqueRoom(t, db)

	_, err := store.Append(ctx, room, "alice", "   ", time.Time{})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	got, err := store.ListRecent(ctx, room, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMessageStore_SequenceSurvivesRestart(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := uniqueRoom(t, db)

	first := newTestMessageStore(t, db)
	msg, err := first.Append(ctx, room, "alice", "before restart", time.Time{})
	require.NoError(t, err)

	// A new store seeds its counter from the persisted maximum.
	second := newTestMessageStore(t, db)
	next, err := second.Append(ctx, room, "alice", "after restart", time.Time{})
	require.NoError(t, err)

	assert.Greater(t, next.Seq, msg.Seq)
}

func TestNotificationStore_Flow(t *testing.T) {
	db := setupTestDB(t)
	store := NewNotificationStore(db)
	ctx := context.Background()
	recipient := uniqueRecipient(t, db)

	first, err := store.Create(ctx, recipient, "first")
	require.NoError(t, err)
	assert.False(t, first.Read)

	// Distinct created_at values keep the newest-first order deterministic.
	time.Sleep(10 * time.Millisecond)
	_, err = store.Create(ctx, recipient, "second")
	require.NoError(t, err)

	unread, err := store.ListUnread(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "second", unread[0].Text)
	assert.Equal(t, "first", unread[1].Text)

	count, err := store.MarkAllRead(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	unread, err = store.ListUnread(ctx, recipient)
	require.NoError(t, err)
	assert.Empty(t, unread)

	count, err = store.MarkAllRead(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNotificationStore_RejectsEmptyRecipient(t *testing.T) {
	db := setupTestDB(t)
	store := NewNotificationStore(db)

	_, err := store.Create(context.Background(), "", "text")
	assert.Error(t, err)
}
