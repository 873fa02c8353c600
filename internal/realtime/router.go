package realtime

import (
	"github.com/gin-gonic/gin"
)

// SetupRealtimeRoutes exposes the streaming endpoint
func SetupRealtimeRoutes(rg *gin.RouterGroup, hub *Hub) {
	rg.GET("/ws", hub.Serve)
}
