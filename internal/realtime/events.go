package realtime

import (
	"encoding/json"
	"time"
)

// Inbound event names (client -> server).
const (
	EventJoinProject      = "join-project"
	EventLeaveProject     = "leave-project"
	EventSendMessage      = "send-message"
	EventSendNotification = "sendNotification"
	EventTaskUpdated      = "task-updated"
	EventAddUser          = "addUser"
)

// Outbound event names (server -> client).
const (
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventOnlineUsers     = "online-users"
	EventMessageReceived = "message-received"
	EventMessageDeleted  = "message-deleted"
	EventNotify          = "notify"
	EventKanbanUpdate    = "kanban-update"
	EventChartUpdate     = "chart-update"
	EventError           = "error"
)

// TargetAll is the sentinel notification target that fans out to every
// registered connection.
const TargetAll = "all"

// GlobalRoom is the well-known room shared by all projects.
const GlobalRoom = "global-chat-room"

// JoinRequest joins a user to a project room.
type JoinRequest struct {
	Room     string `json:"roomId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
}

// LeaveRequest removes a user from a project room.
type LeaveRequest struct {
	Room   string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// MessageRequest carries a new chat message. The timestamp is optional; the
// persisted timestamp governs ordering either way.
type MessageRequest struct {
	Room      string    `json:"roomId" validate:"required"`
	Sender    string    `json:"senderId" validate:"required"`
	Text      string    `json:"text" validate:"required,max=500"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NotifyRequest targets a single user, or every online user via TargetAll.
type NotifyRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// TaskMovedRequest announces a kanban task move to the affected user and to
// passive board viewers.
type TaskMovedRequest struct {
	By             string          `json:"by" validate:"required"`
	To             string          `json:"to" validate:"required"`
	TaskTitle      string          `json:"taskTitle" validate:"required"`
	UpdatedColumns json.RawMessage `json:"updatedColumns"`
}

// AddUserRequest registers a connection for direct notifications without
// joining a room.
type AddUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// UserEvent is the payload for user-joined and user-left.
type UserEvent struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// NotifyEvent is the payload for notify.
type NotifyEvent struct {
	Message string `json:"message"`
}

// KanbanUpdateEvent is the payload for kanban-update.
type KanbanUpdateEvent struct {
	UpdatedColumns json.RawMessage `json:"updatedColumns"`
}

// MessageDeletedEvent is the payload for message-deleted.
type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
}

// ErrorEvent is reported to the originating connection only.
type ErrorEvent struct {
	Message string `json:"message"`
}
