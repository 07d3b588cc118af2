package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hosfad/pooljs-remastered-sub000/internal/config"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/game"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/middleware"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/ws"
)

var startTime = time.Now()

// SetupRoutes configures the REST surface and the WebSocket endpoint.
func SetupRoutes(router *gin.Engine, registry *game.Registry, relay *ws.Relay, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/rooms", listRooms(registry))
		v1.GET("/rooms/:id", getRoom(registry))
	}

	router.GET("/ws", relay.HandleWebSocket)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "pool-relay",
		"uptime":  time.Since(startTime).String(),
	})
}

// listRooms serves the lobby: rooms the host marked discoverable via
// matchmaking.
func listRooms(registry *game.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": registry.Discoverable()})
	}
}

// getRoom returns a live snapshot of one room; only members with open
// sockets are listed.
func getRoom(registry *game.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := registry.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}
