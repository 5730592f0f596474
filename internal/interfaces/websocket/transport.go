package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-realtime-hub/internal/infrastructure/hub"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// wsTransport adapts a gorilla websocket to the hub's Transport. The delivery
// worker, the ping loop, and per-message error frames all write through the
// same mutex because gorilla connections allow only one concurrent writer.
type wsTransport struct {
	conn *websocket.Conn

	mu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

var _ hub.Transport = (*wsTransport)(nil)

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{
		conn: conn,
		done: make(chan struct{}),
	}
}

// WriteEvent delivers one event as a JSON frame.
func (t *wsTransport) WriteEvent(ctx context.Context, event *hub.Event) error {
	return t.writeFrame(hub.EventFrame(event))
}

func (t *wsTransport) writeFrame(frame *hub.ServerFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteJSON(frame)
}

func (t *wsTransport) ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

// Close sends a close frame and tears the socket down. Idempotent; called by
// the delivery worker on exit and unblocks the handler's wait.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		t.conn.SetWriteDeadline(time.Now().Add(writeWait))
		t.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		t.mu.Unlock()

		t.conn.Close()
	})
	return nil
}

// Done is closed when the transport has been torn down.
func (t *wsTransport) Done() <-chan struct{} {
	return t.done
}

// pingLoop keeps the connection alive until the transport closes.
func (t *wsTransport) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.ping(); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}
