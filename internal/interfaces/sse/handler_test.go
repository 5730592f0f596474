package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

// Connect must not return while the delivery worker can still write to the
// response: the writer belongs to net/http again the moment the handler
// exits. A disconnect therefore waits for the worker to finish draining.
func TestConnect_WaitsForDeliveryWorkerOnDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := hub.New(&mockLogger{}, hub.DefaultOptions())
	ctx := context.Background()
	h.Start(ctx)
	defer h.Stop(ctx)

	handler := NewServerSentEventHandler(h, &mockLogger{}, time.Minute)

	recorder := httptest.NewRecorder()
	reqCtx, disconnect := context.WithCancel(context.Background())
	defer disconnect()

	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/sse?channels=room1", nil).
		WithContext(reqCtx)

	done := make(chan struct{})
	go func() {
		handler.Connect(c)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !h.HasChannel("room1") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !h.HasChannel("room1") {
		t.Fatal("handler never subscribed the stream to room1")
	}

	if _, err := h.Publish("room1", json.RawMessage(`"farewell"`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	disconnect()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return after client disconnect")
	}

	// once Connect has returned the worker is gone, so reading the body is
	// safe and the queued event must already be in it
	if !strings.Contains(recorder.Body.String(), `"farewell"`) {
		t.Error("event enqueued before disconnect was not written before Connect returned")
	}
	if got := h.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d after disconnect, want 0", got)
	}
	if h.HasChannel("room1") {
		t.Error("channel retained after its only subscriber disconnected")
	}
}

func TestParseChannels(t *testing.T) {
	channels, err := parseChannels("room1, room2,")
	if err != nil {
		t.Fatalf("parseChannels failed: %v", err)
	}
	if len(channels) != 2 || channels[0] != "room1" || channels[1] != "room2" {
		t.Errorf("parseChannels = %v, want [room1 room2]", channels)
	}

	if _, err := parseChannels(strings.Repeat("x", 300)); err == nil {
		t.Error("over-long channel name accepted")
	}

	channels, err = parseChannels("")
	if err != nil || channels != nil {
		t.Errorf("empty query should yield no channels, got %v, %v", channels, err)
	}
}

type mockLogger struct{}

func (m *mockLogger) Debug(msg string)                              {}
func (m *mockLogger) Debugf(format string, args ...any)             {}
func (m *mockLogger) Info(msg string)                               {}
func (m *mockLogger) Infof(format string, args ...any)              {}
func (m *mockLogger) Warn(msg string)                               {}
func (m *mockLogger) Warnf(format string, args ...any)              {}
func (m *mockLogger) Error(msg string)                              {}
func (m *mockLogger) Errorf(format string, args ...any)             {}
func (m *mockLogger) Fatal(msg string)                              {}
func (m *mockLogger) Fatalf(format string, args ...any)             {}
func (m *mockLogger) WithField(key string, value any) logger.Logger { return m }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }
