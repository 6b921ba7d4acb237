package realtime

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// ConnectionRegistry maps a user identifier to its current live connection.
// At most one connection is tracked per user: a later Register for the same
// user silently supersedes the earlier entry without closing it (single-tab
// assumption).
type ConnectionRegistry struct {
	mu     sync.RWMutex
	users  map[string]Conn   // userID -> live connection
	byConn map[string]string // connID -> userID, for disconnect lookup
	logger *slog.Logger
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		users:  make(map[string]Conn),
		byConn: make(map[string]string),
		logger: slog.Default().With("service", "connection_registry"),
	}
}

// Register records conn as the live connection for userID, replacing any
// prior handle. Replacement is intentional and not an error.
func (r *ConnectionRegistry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.users[userID]; ok && prev.ID() != conn.ID() {
		delete(r.byConn, prev.ID())
		r.logger.Debug("Superseding previous connection", "user_id", userID, "prev_conn", prev.ID())
	}

	r.users[userID] = conn
	r.byConn[conn.ID()] = userID
}

// Unregister removes the mapping only if the stored handle for the user is
// still conn. A stale disconnect therefore cannot clobber a newer
// connection's registration.
func (r *ConnectionRegistry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn.ID()]
	if !ok {
		return
	}
	delete(r.byConn, conn.ID())

	if current, ok := r.users[userID]; ok && current.ID() == conn.ID() {
		delete(r.users, userID)
	}
}

// Lookup returns the live connection for userID, if any. It is used to
// target direct (non-room) notifications.
func (r *ConnectionRegistry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.users[userID]
	return conn, ok
}

// Snapshot returns a copy of the current userID -> connection mapping for
// iteration outside the lock.
func (r *ConnectionRegistry) Snapshot() map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Assign(map[string]Conn{}, r.users)
}

// Count returns the number of online users.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
