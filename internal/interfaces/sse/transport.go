package sse

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/sse"

	"go-realtime-hub/internal/infrastructure/hub"
)

// sseTransport adapts an HTTP response stream to the hub's Transport. The
// event's sequence number doubles as the SSE id field, so EventSource clients
// see drops as id gaps. All writes go through one mutex: the delivery worker
// and the keepalive ticker share the stream.
type sseTransport struct {
	writer  http.ResponseWriter
	flusher http.Flusher

	mu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

var _ hub.Transport = (*sseTransport)(nil)

func newSSETransport(w http.ResponseWriter) (*sseTransport, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &sseTransport{
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// WriteEvent writes one event as an SSE frame and flushes it out.
func (t *sseTransport) WriteEvent(ctx context.Context, event *hub.Event) error {
	return t.encode(sse.Event{
		Id:    strconv.FormatUint(event.Seq, 10),
		Event: "message",
		Data:  hub.EventFrame(event),
	})
}

func (t *sseTransport) writeConnected(connID string) error {
	return t.encode(sse.Event{
		Event: "connected",
		Data:  hub.ConnectedFrame(connID),
	})
}

func (t *sseTransport) writeKeepAlive() error {
	return t.encode(sse.Event{
		Event: "keepalive",
		Data: map[string]any{
			"timestamp": time.Now().Unix(),
		},
	})
}

func (t *sseTransport) encode(event sse.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return fmt.Errorf("stream is closed")
	default:
	}

	if err := sse.Encode(t.writer, event); err != nil {
		return err
	}
	t.flusher.Flush()
	return nil
}

// Close marks the stream finished, which unblocks the handler holding the
// response open. Idempotent.
func (t *sseTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	return nil
}

// Done is closed once the delivery worker has torn the stream down.
func (t *sseTransport) Done() <-chan struct{} {
	return t.done
}
