package sse

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

func InitSSERouter(log logger.Logger, hubInstance *hub.Hub, keepalive time.Duration, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(hubInstance, log, keepalive)

	sseGroup := rg.Group("/sse")
	sseGroup.GET("", SSEHeadersMiddleware(), sseHandler.Connect)

	apiGroup := rg.Group("/api/v1/sse")
	apiGroup.GET("/connections", sseHandler.GetConnections)
}
