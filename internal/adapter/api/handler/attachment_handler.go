package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"weddinglink/internal/usecase"
	"weddinglink/pkg/errors"
	"weddinglink/pkg/logger"
	"weddinglink/pkg/response"
)

type AttachmentHandler struct {
	uploader *usecase.AttachmentUploader
}

func NewAttachmentHandler(uploader *usecase.AttachmentUploader) *AttachmentHandler {
	return &AttachmentHandler{
		uploader: uploader,
	}
}

func (h *AttachmentHandler) UploadAttachment(c echo.Context) error {
	logger.Debug("Starting attachment upload handler")

	file, err := c.FormFile("file")
	if err != nil {
		logger.Error("Error getting file from form: %v", err)
		return response.Error(c, errors.Validation("Missing or invalid file", err))
	}

	logger.Debug("Received file: %s, size: %d bytes, type: %s", file.Filename, file.Size, file.Header.Get("Content-Type"))

	src, err := file.Open()
	if err != nil {
		logger.Error("Error opening file: %v", err)
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	result, err := h.uploader.Upload(c.Request().Context(), usecase.UploadInput{
		FileName: file.Filename,
		FileType: file.Header.Get("Content-Type"),
		FileSize: file.Size,
		Reader:   src,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

func (h *AttachmentHandler) GetUploadProgress(c echo.Context) error {
	return response.Success(c, map[string]int{"progress": h.uploader.Progress()})
}

// AbandonUpload discards the pending upload; its result will not be sent.
func (h *AttachmentHandler) AbandonUpload(c echo.Context) error {
	h.uploader.Abandon()
	return c.NoContent(http.StatusNoContent)
}
