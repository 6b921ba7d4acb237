package realtime

// Conn is the handle to a single live client connection. It is created by the
// transport layer on connect and becomes invalid after disconnect.
//
// Implementations must make Send safe for concurrent use and non-blocking: a
// slow consumer must never stall fanout for a room.
type Conn interface {
	// ID uniquely identifies this transport connection for its lifetime.
	ID() string

	// Send queues one outbound event for delivery to the client.
	Send(event string, data any)
}
