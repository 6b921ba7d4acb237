package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/teamgrid/teamgrid/internal/activity"
	"github.com/teamgrid/teamgrid/internal/domain"
	"github.com/teamgrid/teamgrid/internal/realtime"
)

// Handler serves the synchronous request/response surface exposed to
// collaborators: recent messages, current rosters, unread notifications and
// the mark-read command.
type Handler struct {
	messages      domain.MessageStore
	notifications domain.NotificationStore
	presence      *realtime.RoomPresenceTable
	registry      *realtime.ConnectionRegistry
	router        *realtime.FanoutRouter
	tracker       *activity.Tracker
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(
	messages domain.MessageStore,
	notifications domain.NotificationStore,
	presence *realtime.RoomPresenceTable,
	registry *realtime.ConnectionRegistry,
	router *realtime.FanoutRouter,
	tracker *activity.Tracker,
) *Handler {
	return &Handler{
		messages:      messages,
		notifications: notifications,
		presence:      presence,
		registry:      registry,
		router:        router,
		tracker:       tracker,
	}
}

// ListMessages returns a page of a room's messages in chronological order.
// Page 1 is the most recent page.
func (h *Handler) ListMessages(c echo.Context) error {
	roomID := c.Param("roomID")

	page := intQueryParam(c, "page", 1)
	limit := intQueryParam(c, "limit", 50)

	messages, err := h.messages.ListRecent(c.Request().Context(), roomID, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch messages").SetInternal(err)
	}

	return c.JSON(http.StatusOK, messages)
}

// ListOnlineUsers returns the room's current roster.
func (h *Handler) ListOnlineUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.presence.ListMembers(c.Param("roomID")))
}

// DeleteMessage removes a message on behalf of its sender and broadcasts the
// deletion to the room.
func (h *Handler) DeleteMessage(c echo.Context) error {
	var req struct {
		UserID string `json:"userId" query:"userId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	err := h.router.DeleteMessage(c.Request().Context(), c.Param("messageID"), req.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	case errors.Is(err, domain.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to delete this message")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete message").SetInternal(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// ListUnreadNotifications returns a user's unread notifications, newest
// first.
func (h *Handler) ListUnreadNotifications(c echo.Context) error {
	notifications, err := h.notifications.ListUnread(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notifications").SetInternal(err)
	}

	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationsRead marks every unread notification of a user as read.
func (h *Handler) MarkNotificationsRead(c echo.Context) error {
	count, err := h.notifications.MarkAllRead(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notifications").SetInternal(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"updated": count})
}

// Health reports process liveness plus live presence and activity counters.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"onlineUsers": h.registry.Count(),
		"activeRooms": h.presence.Rooms(),
		"activity":    h.tracker.Snapshot(),
	})
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
