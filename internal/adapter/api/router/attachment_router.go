package router

import (
	"github.com/labstack/echo/v4"

	"weddinglink/internal/adapter/api/handler"
)

func SetupAttachmentRouter(e *echo.Echo, attachmentHandler *handler.AttachmentHandler) {
	attachments := e.Group("/v1/attachments")
	attachments.POST("", attachmentHandler.UploadAttachment)          // POST /v1/attachments - upload an attachment
	attachments.GET("/progress", attachmentHandler.GetUploadProgress) // GET /v1/attachments/progress - pending upload progress
	attachments.DELETE("/pending", attachmentHandler.AbandonUpload)   // DELETE /v1/attachments/pending - abandon pending upload
}
