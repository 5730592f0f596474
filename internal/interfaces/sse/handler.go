package sse

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

// ServerSentEventHandler serves the read-only subscriber stream. SSE clients
// cannot send frames after connecting, so their subscriptions come from the
// channels query parameter; publishing happens over WebSocket or the REST API.
type ServerSentEventHandler struct {
	hub       *hub.Hub
	logger    logger.Logger
	keepalive time.Duration
}

func NewServerSentEventHandler(hubInstance *hub.Hub, log logger.Logger, keepalive time.Duration) *ServerSentEventHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &ServerSentEventHandler{
		hub:       hubInstance,
		logger:    log.WithField("handler", "sse"),
		keepalive: keepalive,
	}
}

// Connect handles SSE connection requests, e.g. GET /sse?channels=room1,room2.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "service temporarily unavailable",
		})
		return
	}

	channels, err := parseChannels(c.Query("channels"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transport, err := newSSETransport(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	connID, err := h.hub.RegisterConnection(transport)
	if err != nil {
		h.logger.Errorf("failed to register connection: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to register connection",
		})
		return
	}

	if err := transport.writeConnected(connID); err != nil {
		h.logger.Errorf("failed to greet connection %s: %v", connID, err)
		h.shutdownStream(connID, transport)
		return
	}

	for _, channel := range channels {
		h.hub.Subscribe(connID, channel)
	}

	h.logger.Infof("sse connection %s established (channels: %v)", connID, channels)

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-keepalive.C:
			if err := transport.writeKeepAlive(); err != nil {
				h.shutdownStream(connID, transport)
				return
			}
		case <-clientGone:
			h.logger.Infof("sse client %s disconnected", connID)
			h.shutdownStream(connID, transport)
			return
		case <-transport.Done():
			h.logger.Infof("sse stream %s closed", connID)
			h.hub.UnregisterConnection(connID)
			return
		}
	}
}

// shutdownStream unregisters the connection and then waits for the delivery
// worker to finish with the transport. The response writer is dead the moment
// Connect returns, so the handler must not hand the stream back to net/http
// while the worker is still draining queued events into it.
func (h *ServerSentEventHandler) shutdownStream(connID string, transport *sseTransport) {
	h.hub.UnregisterConnection(connID)
	<-transport.Done()
}

// GetConnections returns information about live connections.
func (h *ServerSentEventHandler) GetConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_connections": h.hub.ConnectionCount(),
		"connections":       h.hub.Connections(),
		"hub_running":       h.hub.IsRunning(),
	})
}

func parseChannels(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	channels := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if err := hub.ValidateChannelName(name); err != nil {
			return nil, err
		}
		channels = append(channels, name)
	}
	return channels, nil
}

// SSEHeadersMiddleware sets the streaming headers before the handler writes.
func SSEHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // for nginx
		c.Next()
	}
}
