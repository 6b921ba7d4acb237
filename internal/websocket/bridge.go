package websocket

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/teamgrid/teamgrid/internal/realtime"
)

// Bridge owns the WebSocket side of the system: it upgrades connections,
// runs the per-connection read/write pumps, and hands inbound events to the
// FanoutRouter as synchronous calls.
type Bridge struct {
	router *realtime.FanoutRouter

	mu      sync.RWMutex
	clients map[string]*Client

	logger *slog.Logger
}

// NewBridge creates a bridge that dispatches into the given router.
func NewBridge(router *realtime.FanoutRouter) *Bridge {
	return &Bridge{
		router:  router,
		clients: make(map[string]*Client),
		logger:  slog.Default().With("service", "websocket_bridge"),
	}
}

// Handler returns an echo.HandlerFunc that upgrades the request to a
// WebSocket connection. The userId query value is supplied by the trusted
// authentication layer in front of this core; when present the connection is
// immediately registered for direct notifications.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // In production, check origin.
		})
		if err != nil {
			b.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
			return err
		}

		client := &Client{
			id:     uuid.NewString(),
			conn:   conn,
			send:   make(chan []byte, 256),
			bridge: b,
			logger: b.logger,
		}
		b.add(client)

		if userID := c.QueryParam("userId"); userID != "" {
			b.router.AddUser(client, realtime.AddUserRequest{UserID: userID})
		}

		go client.writePump()
		go client.readPump()

		return nil
	}
}

// Count returns the number of live connections.
func (b *Bridge) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.clients)
}

func (b *Bridge) add(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clients[client.id] = client
	b.logger.Info("Client connected", "conn_id", client.id, "total", len(b.clients))
}

func (b *Bridge) remove(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[client.id]; ok {
		delete(b.clients, client.id)
		client.close()
		b.logger.Info("Client disconnected", "conn_id", client.id, "total", len(b.clients))
	}
}
