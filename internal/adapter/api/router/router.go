package router

import (
	"github.com/labstack/echo/v4"

	"weddinglink/internal/adapter/api/handler"
)

func Setup(e *echo.Echo, surfaceHandler *handler.SurfaceHandler, attachmentHandler *handler.AttachmentHandler, wsHandler *handler.WebSocketHandler, healthHandler *handler.HealthHandler) {
	SetupSurfaceRouter(e, surfaceHandler)
	SetupAttachmentRouter(e, attachmentHandler)
	SetupWebSocketRouter(e, wsHandler)
	SetupHealthRouter(e, healthHandler)
}
