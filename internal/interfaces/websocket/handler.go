package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

// WebSocketHandler upgrades clients and speaks the tagged message protocol:
// inbound subscribe/unsubscribe/publish frames are forwarded to the hub, and
// the hub's delivery worker writes events back through the transport adapter.
type WebSocketHandler struct {
	hub       *hub.Hub
	logger    logger.Logger
	upgrader  websocket.Upgrader
	keepalive time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler instance.
func NewWebSocketHandler(hubInstance *hub.Hub, log logger.Logger, keepalive time.Duration) *WebSocketHandler {
	if keepalive <= 0 {
		keepalive = (pongWait * 9) / 10
	}
	return &WebSocketHandler{
		hub:       hubInstance,
		logger:    log.WithField("handler", "websocket"),
		keepalive: keepalive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The hub sits behind a load balancer; origin checks belong there.
				return true
			},
		},
	}
}

// Connect handles WebSocket connection upgrade requests.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "service temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("failed to upgrade connection: %v", err)
		return
	}

	transport := newWSTransport(conn)

	connID, err := h.hub.RegisterConnection(transport)
	if err != nil {
		h.logger.Errorf("failed to register connection: %v", err)
		transport.Close()
		return
	}

	if err := transport.writeFrame(hub.ConnectedFrame(connID)); err != nil {
		h.logger.Errorf("failed to greet connection %s: %v", connID, err)
		h.hub.UnregisterConnection(connID)
		return
	}

	h.logger.Infof("websocket connection %s established", connID)

	go transport.pingLoop(h.keepalive)
	h.readLoop(connID, conn, transport)
}

// readLoop consumes client frames until the socket errors or closes. Bad
// frames get an error frame back; they never close the connection.
func (h *WebSocketHandler) readLoop(connID string, conn *websocket.Conn, transport *wsTransport) {
	defer h.hub.UnregisterConnection(connID)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
			) {
				h.logger.Warnf("websocket read error on %s: %v", connID, err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := hub.DecodeClientMessage(data)
		if err != nil {
			h.logger.Debugf("bad frame from %s: %v", connID, err)
			if werr := transport.writeFrame(hub.ErrorFrame(err.Error())); werr != nil {
				return
			}
			continue
		}

		switch msg.Action {
		case hub.ActionSubscribe:
			h.hub.Subscribe(connID, msg.Channel)
		case hub.ActionUnsubscribe:
			h.hub.Unsubscribe(connID, msg.Channel)
		case hub.ActionPublish:
			if _, err := h.hub.Publish(msg.Channel, msg.Payload); err != nil {
				h.logger.Warnf("publish from %s failed: %v", connID, err)
			}
		}
	}
}

// GetConnections returns information about live connections.
func (h *WebSocketHandler) GetConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_connections": h.hub.ConnectionCount(),
		"connections":       h.hub.Connections(),
		"hub_running":       h.hub.IsRunning(),
	})
}
