package websocket

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

// InitWebSocketRouter initializes WebSocket routes.
func InitWebSocketRouter(log logger.Logger, hubInstance *hub.Hub, keepalive time.Duration, rg *gin.RouterGroup) {
	wsHandler := NewWebSocketHandler(hubInstance, log, keepalive)

	wsGroup := rg.Group("/ws")
	wsGroup.GET("", wsHandler.Connect)

	apiGroup := rg.Group("/api/v1/ws")
	apiGroup.GET("/connections", wsHandler.GetConnections)
}
