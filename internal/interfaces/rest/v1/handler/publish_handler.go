package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

// maxPayloadBytes bounds a single published payload.
const maxPayloadBytes = 1 << 20

// PublishHandler is the REST publisher surface: external producers POST a
// JSON payload to a channel and get the assigned sequence number back.
type PublishHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

func NewPublishHandler(hubInstance *hub.Hub, log logger.Logger) *PublishHandler {
	return &PublishHandler{
		hub:    hubInstance,
		logger: log.WithField("handler", "publish"),
	}
}

// Publish handles POST /api/v1/channels/:channel/events. The request body is
// the event payload, verbatim. Publishing to a channel nobody subscribes to
// still succeeds and advances the sequence.
func (h *PublishHandler) Publish(c *gin.Context) {
	channel := c.Param("channel")
	if err := hub.ValidateChannelName(channel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}
	if len(body) > maxPayloadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be valid JSON"})
		return
	}

	seq, err := h.hub.Publish(channel, body)
	if err != nil {
		h.logger.Errorf("publish to %s failed: %v", channel, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub is not running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "published",
		"channel": channel,
		"seq":     seq,
	})
}

// Stats handles GET /api/v1/stats.
func (h *PublishHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetStats())
}

// Connections handles GET /api/v1/connections.
func (h *PublishHandler) Connections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_connections": h.hub.ConnectionCount(),
		"connections":       h.hub.Connections(),
	})
}
