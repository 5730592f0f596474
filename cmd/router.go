package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-realtime-hub/internal/infrastructure/config"
	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
	"go-realtime-hub/internal/interfaces/rest/v1/handler"
	"go-realtime-hub/internal/interfaces/sse"
	"go-realtime-hub/internal/interfaces/websocket"
)

func InitRouter(hubInstance *hub.Hub, cfg *config.Config, log logger.Logger) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	// Health check endpoint for deployment platforms
	rootGroup.GET("/health", func(c *gin.Context) {
		stats := hubInstance.GetStats()
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"hub_running": hubInstance.IsRunning(),
			"connections": stats.Connections,
			"channels":    stats.Channels,
		})
	})

	rootGroup.GET("/hub/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"hub_running": hubInstance.IsRunning(),
			"connections": hubInstance.ConnectionCount(),
		})
	})

	publishHandler := handler.NewPublishHandler(hubInstance, log)
	apiGroup := rootGroup.Group("/api/v1")
	{
		apiGroup.POST("/channels/:channel/events", publishHandler.Publish)
		apiGroup.GET("/stats", publishHandler.Stats)
		apiGroup.GET("/connections", publishHandler.Connections)
	}

	sse.InitSSERouter(log, hubInstance, cfg.Hub.KeepAlive, rootGroup)
	websocket.InitWebSocketRouter(log, hubInstance, cfg.Hub.KeepAlive, rootGroup)

	return router
}
