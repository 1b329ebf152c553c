package handler

import (
	"github.com/labstack/echo/v4"

	"weddinglink/internal/adapter/surface"
	"weddinglink/internal/usecase"
	"weddinglink/pkg/response"
)

// SurfaceHandler serves the surface view models and accepts their
// intents. It owns no state: every request reads or writes through the
// shared conversation store.
type SurfaceHandler struct {
	store  *usecase.ConversationStore
	names  *usecase.DisplayNameResolver
	bubble *surface.Bubble
	page   *surface.Page
}

func NewSurfaceHandler(store *usecase.ConversationStore, names *usecase.DisplayNameResolver, bubble *surface.Bubble, page *surface.Page) *SurfaceHandler {
	return &SurfaceHandler{
		store:  store,
		names:  names,
		bubble: bubble,
		page:   page,
	}
}

type conversationIntentRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Content        string `json:"content" validate:"required"`
	Type           string `json:"type" validate:"omitempty,oneof=text image video file"`
}

func (h *SurfaceHandler) GetBubbleView(c echo.Context) error {
	return response.Success(c, h.bubble.View())
}

func (h *SurfaceHandler) GetPageView(c echo.Context) error {
	return response.Success(c, h.page.View())
}

func (h *SurfaceHandler) GetModalView(c echo.Context) error {
	conversationID := c.Param("id")
	modal := surface.NewModal(h.store, h.names, conversationID)
	return response.Success(c, modal.View())
}

// RefreshConversations reloads the conversation list from the backend.
func (h *SurfaceHandler) RefreshConversations(c echo.Context) error {
	if err := h.store.LoadConversations(c.Request().Context()); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.page.View())
}

// OpenConversation activates a conversation and loads its history.
func (h *SurfaceHandler) OpenConversation(c echo.Context) error {
	var req conversationIntentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.page.Open(c.Request().Context(), req.ConversationID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.page.View())
}

func (h *SurfaceHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.store.SendMessage(c.Request().Context(), req.ConversationID, req.Content, req.Type)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}

func (h *SurfaceHandler) MarkConversationRead(c echo.Context) error {
	var req conversationIntentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.store.MarkAsRead(c.Request().Context(), req.ConversationID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"conversation_id": req.ConversationID})
}
