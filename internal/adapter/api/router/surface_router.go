package router

import (
	"github.com/labstack/echo/v4"

	"weddinglink/internal/adapter/api/handler"
)

// SetupSurfaceRouter wires the surface view models and their intents.
func SetupSurfaceRouter(e *echo.Echo, surfaceHandler *handler.SurfaceHandler) {
	surfaces := e.Group("/v1/surfaces")
	surfaces.GET("/bubble", surfaceHandler.GetBubbleView)   // GET /v1/surfaces/bubble - floating bubble view
	surfaces.GET("/page", surfaceHandler.GetPageView)       // GET /v1/surfaces/page - full messages page view
	surfaces.GET("/modal/:id", surfaceHandler.GetModalView) // GET /v1/surfaces/modal/:id - modal view for one conversation

	intents := e.Group("/v1/intents")
	intents.POST("/refresh", surfaceHandler.RefreshConversations) // POST /v1/intents/refresh - reload conversation list
	intents.POST("/open", surfaceHandler.OpenConversation)        // POST /v1/intents/open - activate + load a conversation
	intents.POST("/send", surfaceHandler.SendMessage)             // POST /v1/intents/send - send a message
	intents.POST("/read", surfaceHandler.MarkConversationRead)    // POST /v1/intents/read - mark a conversation read
}
