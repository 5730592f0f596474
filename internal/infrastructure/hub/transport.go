package hub

import "context"

// Transport is the outbound half of a client connection (SSE, WebSocket, etc.),
// supplied by the interface layer when the connection is registered. The hub's
// delivery worker is the only caller of WriteEvent for a given connection.
type Transport interface {
	// WriteEvent writes one event to the client. A returned error closes the
	// connection; it never affects delivery to other connections.
	WriteEvent(ctx context.Context, event *Event) error
	Close() error
}
