package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamgrid/teamgrid/internal/domain"
	"github.com/teamgrid/teamgrid/internal/realtime"
)

// memMessageStore backs dispatch tests without a database.
type memMessageStore struct {
	mu       sync.Mutex
	seq      int64
	messages []domain.ChatMessage
}

func (s *memMessageStore) Append(_ context.Context, room, sender, text string, ts time.Time) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed, err := domain.ValidateMessageText(text)
	if err != nil {
		return nil, err
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	s.seq++
	msg := domain.ChatMessage{
		ID:        fmt.Sprintf("m%d", s.seq),
		Room:      room,
		Sender:    sender,
		Text:      trimmed,
		Seq:       s.seq,
		CreatedAt: ts,
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *memMessageStore) ListRecent(context.Context, string, int, int) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (s *memMessageStore) Get(context.Context, string) (*domain.ChatMessage, error) {
	return nil, domain.ErrNotFound
}

func (s *memMessageStore) Delete(context.Context, string, string) error {
	return domain.ErrNotFound
}

type memNotificationStore struct {
	mu      sync.Mutex
	records []domain.Notification
}

func (s *memNotificationStore) Create(_ context.Context, recipient, text string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := domain.Notification{
		ID:        fmt.Sprintf("n%d", len(s.records)+1),
		Recipient: recipient,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	s.records = append(s.records, n)
	return &n, nil
}

func (s *memNotificationStore) ListUnread(context.Context, string) ([]domain.Notification, error) {
	return nil, nil
}

func (s *memNotificationStore) MarkAllRead(context.Context, string) (int, error) {
	return 0, nil
}

func newTestBridge() *Bridge {
	router := realtime.NewFanoutRouter(
		realtime.NewConnectionRegistry(),
		realtime.NewRoomPresenceTable(),
		&memMessageStore{},
		&memNotificationStore{},
		nil,
	)
	return NewBridge(router)
}

// newTestClient builds a client whose outbound frames land in its send
// channel where the test can inspect them. The pumps are never started.
func newTestClient(b *Bridge, id string) *Client {
	c := &Client{
		id:     id,
		send:   make(chan []byte, 64),
		bridge: b,
		logger: slog.Default(),
	}
	b.add(c)
	return c
}

// drain decodes every frame currently queued for the client.
func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()

	var out []Envelope
	for {
		select {
		case raw := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func frame(t *testing.T, event string, payload any) []byte {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	require.NoError(t, err)
	return raw
}

func TestDispatch_MalformedFrame(t *testing.T) {
	c := newTestClient(newTestBridge(), "c1")

	c.dispatch([]byte("{not json"))

	frames := drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, realtime.EventError, frames[0].Event)
}

func TestDispatch_UnknownEvent(t *testing.T) {
	c := newTestClient(newTestBridge(), "c1")

	c.dispatch(frame(t, "self-destruct", map[string]string{}))

	frames := drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, realtime.EventError, frames[0].Event)

	var payload realtime.ErrorEvent
	require.NoError(t, json.Unmarshal(frames[0].Data, &payload))
	assert.Contains(t, payload.Message, "self-destruct")
}

func TestDispatch_MissingPayload(t *testing.T) {
	c := newTestClient(newTestBridge(), "c1")

	raw, err := json.Marshal(Envelope{Event: realtime.EventJoinProject})
	require.NoError(t, err)
	c.dispatch(raw)

	frames := drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, realtime.EventError, frames[0].Event)
}

func TestDispatch_JoinThenMessageRoundTrip(t *testing.T) {
	b := newTestBridge()
	alice := newTestClient(b, "c-alice")
	bob := newTestClient(b, "c-bob")

	alice.dispatch(frame(t, realtime.EventJoinProject, realtime.JoinRequest{
		Room: "p1", UserID: "alice", UserName: "Alice",
	}))
	bob.dispatch(frame(t, realtime.EventJoinProject, realtime.JoinRequest{
		Room: "p1", UserID: "bob", UserName: "Bob",
	}))

	aliceFrames := drain(t, alice)
	// Own roster, then bob's arrival, then the refreshed roster.
	require.Len(t, aliceFrames, 3)
	assert.Equal(t, realtime.EventOnlineUsers, aliceFrames[0].Event)
	assert.Equal(t, realtime.EventUserJoined, aliceFrames[1].Event)
	assert.Equal(t, realtime.EventOnlineUsers, aliceFrames[2].Event)

	bobFrames := drain(t, bob)
	require.Len(t, bobFrames, 1)
	assert.Equal(t, realtime.EventOnlineUsers, bobFrames[0].Event)

	var roster []realtime.Member
	require.NoError(t, json.Unmarshal(bobFrames[0].Data, &roster))
	require.Len(t, roster, 2)
	assert.Equal(t, "alice", roster[0].UserID)
	assert.Equal(t, "bob", roster[1].UserID)

	alice.dispatch(frame(t, realtime.EventSendMessage, realtime.MessageRequest{
		Room: "p1", Sender: "alice", Text: "hello",
	}))

	for _, c := range []*Client{alice, bob} {
		frames := drain(t, c)
		require.Len(t, frames, 1)
		assert.Equal(t, realtime.EventMessageReceived, frames[0].Event)

		var msg domain.ChatMessage
		require.NoError(t, json.Unmarshal(frames[0].Data, &msg))
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, "alice", msg.Sender)
	}
}

func TestSend_AfterCloseIsSafe(t *testing.T) {
	c := newTestClient(newTestBridge(), "c1")

	c.close()
	// Must neither panic nor block.
	c.Send(realtime.EventNotify, realtime.NotifyEvent{Message: "late"})

	// close is idempotent.
	c.close()
}

func TestBridge_RemoveClosesClient(t *testing.T) {
	b := newTestBridge()
	c := newTestClient(b, "c1")
	assert.Equal(t, 1, b.Count())

	b.remove(c)
	assert.Equal(t, 0, b.Count())

	// Removing again is a no-op.
	b.remove(c)
	assert.Equal(t, 0, b.Count())
}
