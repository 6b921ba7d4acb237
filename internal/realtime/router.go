package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/teamgrid/teamgrid/internal/domain"
	"github.com/teamgrid/teamgrid/internal/pubsub"
)

// FanoutRouter receives inbound events from client connections and decides
// which connections receive which outbound events, in what order. Every
// operation follows the same discipline: validate, then persist, then
// broadcast. A persistence failure leaves the in-memory presence state
// untouched and is reported to the originating connection only.
//
// The transport layer calls these methods synchronously; turning the results
// into asynchronous wire events is the transport's concern.
type FanoutRouter struct {
	registry      *ConnectionRegistry
	presence      *RoomPresenceTable
	messages      domain.MessageStore
	notifications domain.NotificationStore
	publisher     pubsub.Publisher
	validate      *validator.Validate
	logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session // connID -> session
	known    map[string]struct{} // every user that has registered a connection
}

// session tracks what the router knows about one connection. A connection is
// present in at most one room at a time; joining a new room implicitly leaves
// the previous one.
type session struct {
	userID   string
	userName string
	room     string
}

// NewFanoutRouter wires the router with its collaborators.
func NewFanoutRouter(
	registry *ConnectionRegistry,
	presence *RoomPresenceTable,
	messages domain.MessageStore,
	notifications domain.NotificationStore,
	publisher pubsub.Publisher,
) *FanoutRouter {
	return &FanoutRouter{
		registry:      registry,
		presence:      presence,
		messages:      messages,
		notifications: notifications,
		publisher:     publisher,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		sessions:      make(map[string]*session),
		known:         make(map[string]struct{}),
		logger:        slog.Default().With("service", "fanout_router"),
	}
}

// AddUser registers the connection for direct notifications without joining a
// room.
func (r *FanoutRouter) AddUser(conn Conn, req AddUserRequest) {
	if err := r.validate.Struct(req); err != nil {
		r.emitError(conn, "Invalid addUser payload")
		return
	}

	r.mu.Lock()
	sess := r.ensureSessionLocked(conn)
	sess.userID = req.UserID
	r.known[req.UserID] = struct{}{}
	r.mu.Unlock()

	r.registry.Register(req.UserID, conn)
	r.logger.Debug("User registered", "user_id", req.UserID, "conn_id", conn.ID())
}

// Join adds the user to a room, announces the arrival to the other members,
// then sends the full roster to everyone including the joiner. The two-step
// fanout (targeted diff, then full roster) lets slow clients resynchronize
// without tracking deltas.
func (r *FanoutRouter) Join(ctx context.Context, conn Conn, req JoinRequest) {
	if err := r.validate.Struct(req); err != nil {
		r.emitError(conn, "Failed to join project")
		return
	}

	r.mu.Lock()
	sess := r.ensureSessionLocked(conn)
	prevRoom, prevUser := sess.room, sess.userID
	sess.userID = req.UserID
	sess.userName = req.UserName
	sess.room = req.Room
	r.known[req.UserID] = struct{}{}
	r.mu.Unlock()

	if prevRoom != "" && (prevRoom != req.Room || prevUser != req.UserID) {
		r.fanoutLeave(prevRoom, prevUser)
	}

	r.registry.Register(req.UserID, conn)

	roster := r.presence.Join(req.Room, req.UserID, req.UserName, conn)
	for _, m := range roster {
		if m.UserID == req.UserID {
			continue
		}
		m.Conn.Send(EventUserJoined, UserEvent{UserID: req.UserID, UserName: req.UserName})
	}
	for _, m := range roster {
		m.Conn.Send(EventOnlineUsers, roster)
	}

	r.publishPresence(ctx, req.Room, roster)
	r.logger.Info("User joined project", "user_id", req.UserID, "room", req.Room)
}

// Leave removes the user from the room and notifies the remaining members.
// Leaving a room the user is not in is a no-op.
func (r *FanoutRouter) Leave(ctx context.Context, conn Conn, req LeaveRequest) {
	if err := r.validate.Struct(req); err != nil {
		r.emitError(conn, "Invalid leave-project payload")
		return
	}

	r.mu.Lock()
	if sess, ok := r.sessions[conn.ID()]; ok && sess.room == req.Room {
		sess.room = ""
	}
	r.mu.Unlock()

	r.fanoutLeave(req.Room, req.UserID)
}

// SendMessage validates, persists and broadcasts a chat message to every
// member of the room including the sender. The broadcast carries the
// store-assigned id, so the sender's optimistic copy can be reconciled against
// the canonical persistence order.
func (r *FanoutRouter) SendMessage(ctx context.Context, conn Conn, req MessageRequest) {
	if err := r.validate.Struct(req); err != nil {
		r.emitError(conn, messageValidationText(err))
		return
	}

	msg, err := r.messages.Append(ctx, req.Room, req.Sender, req.Text, req.Timestamp)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			r.emitError(conn, "Message cannot be empty")
		case errors.Is(err, domain.ErrMessageTooLong):
			r.emitError(conn, "Message too long")
		default:
			r.logger.Error("Failed to persist chat message", "room", req.Room, "error", err)
			r.emitError(conn, "Failed to send message")
		}
		return
	}

	for _, m := range r.presence.ListMembers(req.Room) {
		m.Conn.Send(EventMessageReceived, msg)
	}

	r.publishJSON(ctx, TopicMessagePersisted, msg.Sender, msg)
	r.logger.Info("Message sent", "room", req.Room, "sender", req.Sender, "message_id", msg.ID)
}

// Notify persists and delivers a notification. The TargetAll sentinel
// persists one record per known user and emits to every registered
// connection; a specific target is persisted unconditionally but emitted only
// when online, so an offline user still accumulates the notification.
func (r *FanoutRouter) Notify(ctx context.Context, conn Conn, req NotifyRequest) {
	if err := r.validate.Struct(req); err != nil {
		r.emitError(conn, "Invalid notification payload")
		return
	}

	if req.UserID == TargetAll {
		r.mu.Lock()
		recipients := lo.Keys(r.known)
		r.mu.Unlock()

		var failed bool
		for _, uid := range recipients {
			n, err := r.notifications.Create(ctx, uid, req.Message)
			if err != nil {
				r.logger.Error("Failed to persist notification", "recipient", uid, "error", err)
				failed = true
				continue
			}
			r.publishJSON(ctx, TopicNotificationCreated, uid, n)
		}

		for _, c := range r.registry.Snapshot() {
			c.Send(EventNotify, NotifyEvent{Message: req.Message})
		}

		if failed {
			r.emitError(conn, "Failed to deliver notification")
		}
		return
	}

	n, err := r.notifications.Create(ctx, req.UserID, req.Message)
	if err != nil {
		r.logger.Error("Failed to persist notification", "recipient", req.UserID, "error", err)
		r.emitError(conn, "Failed to deliver notification")
		return
	}
	r.publishJSON(ctx, TopicNotificationCreated, req.UserID, n)

	if c, ok := r.registry.Lookup(req.UserID); ok {
		c.Send(EventNotify, NotifyEvent{Message: req.Message})
	}
}

// TaskMoved records a notification for the task's counterpart, pushes the
// board state to them when online, and broadcasts a chart refresh to every
// connection. The acting user already has the authoritative local state, so
// only the counterpart and passive viewers get a push.
func (r *FanoutRouter) TaskMoved(ctx context.Context, conn Conn, req TaskMovedRequest) {
	if err := r.validate.Struct(req); err != nil {
		r.emitError(conn, "Invalid task-updated payload")
		return
	}

	text := fmt.Sprintf("\"%s\" was moved by %s", req.TaskTitle, req.By)

	n, err := r.notifications.Create(ctx, req.To, text)
	if err != nil {
		r.logger.Error("Failed to persist task notification", "recipient", req.To, "error", err)
		r.emitError(conn, "Failed to record task update")
		return
	}
	r.publishJSON(ctx, TopicNotificationCreated, req.To, n)

	if c, ok := r.registry.Lookup(req.To); ok {
		c.Send(EventNotify, NotifyEvent{Message: text})
		c.Send(EventKanbanUpdate, KanbanUpdateEvent{UpdatedColumns: req.UpdatedColumns})
	}

	for _, c := range r.registry.Snapshot() {
		c.Send(EventChartUpdate, nil)
	}

	r.logger.Info("Task update fanned out", "by", req.By, "to", req.To, "task", req.TaskTitle)
}

// Disconnect cleans up all state for the connection: room presence (at most
// one room in this design) and the connection registry. It is safe to invoke
// for a connection that never joined anything, and calling it twice is a
// no-op.
func (r *FanoutRouter) Disconnect(conn Conn) {
	r.mu.Lock()
	sess := r.sessions[conn.ID()]
	delete(r.sessions, conn.ID())
	r.mu.Unlock()

	if sess != nil && sess.room != "" {
		// Only tear down presence if the record still references this
		// connection; a rejoin on a newer connection must survive the old
		// connection's disconnect.
		for _, m := range r.presence.ListMembers(sess.room) {
			if m.UserID == sess.userID && m.Conn.ID() == conn.ID() {
				r.fanoutLeave(sess.room, sess.userID)
				break
			}
		}
	}

	r.registry.Unregister(conn)

	if sess != nil {
		r.logger.Info("Connection cleaned up", "user_id", sess.userID, "conn_id", conn.ID())
	}
}

// DeleteMessage hard-deletes a message on behalf of its sender and announces
// the deletion to the message's room. It is exposed to the synchronous HTTP
// surface, so errors are returned rather than emitted.
func (r *FanoutRouter) DeleteMessage(ctx context.Context, messageID, requesterID string) error {
	msg, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if err := r.messages.Delete(ctx, messageID, requesterID); err != nil {
		return err
	}

	for _, m := range r.presence.ListMembers(msg.Room) {
		m.Conn.Send(EventMessageDeleted, MessageDeletedEvent{MessageID: messageID})
	}

	r.publishJSON(ctx, TopicMessageDeleted, requesterID, MessageDeletedEvent{MessageID: messageID})
	return nil
}

// fanoutLeave removes presence for (room, user) and, if the user was a
// member, emits user-left followed by the refreshed roster to the remaining
// members.
func (r *FanoutRouter) fanoutLeave(room, userID string) {
	member, ok := r.presence.Leave(room, userID)
	if !ok {
		return
	}

	remaining := r.presence.ListMembers(room)
	for _, m := range remaining {
		m.Conn.Send(EventUserLeft, UserEvent{UserID: member.UserID, UserName: member.UserName})
	}
	for _, m := range remaining {
		m.Conn.Send(EventOnlineUsers, remaining)
	}

	r.publishPresence(context.Background(), room, remaining)
	r.logger.Info("User left project", "user_id", userID, "room", room)
}

// ensureSessionLocked returns the session for conn, creating it if needed.
// Callers must hold r.mu.
func (r *FanoutRouter) ensureSessionLocked(conn Conn) *session {
	sess, ok := r.sessions[conn.ID()]
	if !ok {
		sess = &session{}
		r.sessions[conn.ID()] = sess
	}
	return sess
}

func (r *FanoutRouter) emitError(conn Conn, message string) {
	if conn == nil {
		return
	}
	conn.Send(EventError, ErrorEvent{Message: message})
}

// publishPresence announces a roster change on the bus.
func (r *FanoutRouter) publishPresence(ctx context.Context, room string, roster []Member) {
	users := lo.Map(roster, func(m Member, _ int) string { return m.UserID })
	r.publishJSON(ctx, TopicPresenceChanged, "", struct {
		Room  string   `json:"room"`
		Users []string `json:"users"`
	}{Room: room, Users: users})
}

// publishJSON publishes a payload on the bus. Bus delivery is best-effort;
// failures are logged and never affect fanout to connections.
func (r *FanoutRouter) publishJSON(ctx context.Context, topic, userID string, payload any) {
	if r.publisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal bus payload", "topic", topic, "error", err)
		return
	}

	msg := pubsub.Message{Topic: topic, UserID: userID, Payload: data}
	if err := r.publisher.Publish(ctx, msg); err != nil {
		r.logger.Error("Failed to publish bus event", "topic", topic, "error", err)
	}
}

// messageValidationText maps a send-message validation failure to the error
// text clients display.
func messageValidationText(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() != "Text" {
				continue
			}
			if fe.Tag() == "max" {
				return "Message too long"
			}
			return "Message cannot be empty"
		}
	}
	return "Invalid send-message payload"
}
