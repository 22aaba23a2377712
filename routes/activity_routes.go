package routes

import (
	"ridemarket/internal/handlers/shared"
	"ridemarket/internal/middleware"
	"ridemarket/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupActivityRoutes sets up the activity badge endpoints and the
// realtime socket
func SetupActivityRoutes(
	r *gin.RouterGroup,
	jwtSecret string,
	activityHandler *handlers.ActivityHandler,
	wsHandler *websocket.Handler,
) {
	activity := r.Group("/activity")
	activity.Use(middleware.AuthRequired(jwtSecret))
	{
		activity.GET("/counts", activityHandler.GetCounts)
		activity.PUT("/:category/seen", activityHandler.MarkSeen)
	}

	ws := r.Group("/ws")
	ws.Use(middleware.AuthRequired(jwtSecret))
	{
		ws.GET("", wsHandler.HandleWebSocket)
	}
}
