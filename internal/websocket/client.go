package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/teamgrid/teamgrid/internal/realtime"
)

// Envelope is the wire frame for both directions: a named event carrying a
// structured payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope mirrors Envelope for outbound frames, where the payload is a
// value rather than raw JSON.
type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client wraps one live WebSocket connection and implements realtime.Conn.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	bridge *Bridge
	logger *slog.Logger

	// mu guards send against concurrent close: fanout can race the
	// connection teardown.
	mu     sync.RWMutex
	closed bool
}

// ID uniquely identifies this transport connection.
func (c *Client) ID() string {
	return c.id
}

// Send queues one outbound event. It never blocks: if the client's send
// buffer is full the event is dropped; a lagging client must not stall
// fanout for the rest of the room.
func (c *Client) Send(event string, data any) {
	payload, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error("Failed to marshal outbound event", "event", event, "error", err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	select {
	case c.send <- payload:
	default:
		c.logger.Warn("Client send channel full, dropping event", "conn_id", c.id, "event", event)
	}
}

// close shuts the send channel exactly once, ending the write pump.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps inbound frames from the connection into the router. When
// the connection drops for any reason, it triggers the router's unconditional
// disconnect cleanup.
func (c *Client) readPump() {
	defer func() {
		c.bridge.router.Disconnect(c)
		c.bridge.remove(c)
		c.conn.Close(websocket.StatusNormalClosure, "Client disconnected")
	}()

	for {
		_, message, err := c.conn.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				c.logger.Info("WebSocket closed normally by client", "conn_id", c.id)
			} else if err != io.EOF {
				c.logger.Error("WebSocket read error", "conn_id", c.id, "error", err)
			}
			return
		}

		c.dispatch(message)
	}
}

// dispatch decodes one inbound frame and invokes the matching router
// operation. Malformed frames are answered with an error event to this
// connection only.
func (c *Client) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.Send(realtime.EventError, realtime.ErrorEvent{Message: "Malformed event frame"})
		return
	}

	ctx := context.Background()

	switch env.Event {
	case realtime.EventAddUser:
		if req, ok := decodePayload[realtime.AddUserRequest](c, env); ok {
			c.bridge.router.AddUser(c, req)
		}
	case realtime.EventJoinProject:
		if req, ok := decodePayload[realtime.JoinRequest](c, env); ok {
			c.bridge.router.Join(ctx, c, req)
		}
	case realtime.EventLeaveProject:
		if req, ok := decodePayload[realtime.LeaveRequest](c, env); ok {
			c.bridge.router.Leave(ctx, c, req)
		}
	case realtime.EventSendMessage:
		if req, ok := decodePayload[realtime.MessageRequest](c, env); ok {
			c.bridge.router.SendMessage(ctx, c, req)
		}
	case realtime.EventSendNotification:
		if req, ok := decodePayload[realtime.NotifyRequest](c, env); ok {
			c.bridge.router.Notify(ctx, c, req)
		}
	case realtime.EventTaskUpdated:
		if req, ok := decodePayload[realtime.TaskMovedRequest](c, env); ok {
			c.bridge.router.TaskMoved(ctx, c, req)
		}
	default:
		c.Send(realtime.EventError, realtime.ErrorEvent{Message: "Unknown event: " + env.Event})
	}
}

// decodePayload unmarshals an inbound payload, reporting a malformed payload
// back to the sender.
func decodePayload[T any](c *Client, env Envelope) (T, bool) {
	var req T
	if len(env.Data) == 0 {
		c.Send(realtime.EventError, realtime.ErrorEvent{Message: "Missing payload for " + env.Event})
		return req, false
	}
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.Send(realtime.EventError, realtime.ErrorEvent{Message: "Invalid payload for " + env.Event})
		return req, false
	}
	return req, true
}

// writePump pumps queued outbound frames onto the WebSocket connection.
func (c *Client) writePump() {
	defer func() {
		c.conn.Close(websocket.StatusNormalClosure, "Server-side cleanup")
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			c.logger.Error("WebSocket write error", "conn_id", c.id, "error", err)
			return
		}
	}
}
