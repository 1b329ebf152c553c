// Package surface holds the presentation adapters: thin, stateless views
// over the one shared ConversationStore. A surface never keeps its own
// copy of conversation or message state; every view model is built by
// reading through the store at render time, so the floating bubble, the
// full messages page and the modal can never disagree with each other.
package surface

import (
	"time"

	"weddinglink/internal/domain/entity"
	"weddinglink/internal/domain/service"
	"weddinglink/internal/usecase"
)

type ConversationSummary struct {
	ID              string              `json:"id"`
	DisplayName     string              `json:"display_name"`
	LastMessage     string              `json:"last_message,omitempty"`
	LastMessageKind service.ContentKind `json:"last_message_kind,omitempty"`
	LastMessageAt   time.Time           `json:"last_message_at,omitempty"`
	UnreadCount     int                 `json:"unread_count"`
	Active          bool                `json:"active"`
}

type ThreadMessage struct {
	ID            string               `json:"id"`
	SenderID      string               `json:"sender_id"`
	Mine          bool                 `json:"mine"`
	Parts         service.ContentParts `json:"parts"`
	DeliveryState entity.DeliveryState `json:"delivery_state"`
	Timestamp     time.Time            `json:"timestamp"`
}

func summarize(conv *entity.Conversation, names *usecase.DisplayNameResolver, activeID string) ConversationSummary {
	summary := ConversationSummary{
		ID:          conv.ID,
		DisplayName: names.Resolve(conv),
		UnreadCount: conv.UnreadCount,
		Active:      conv.ID == activeID,
	}
	if conv.LastMessage != nil {
		parts := service.ClassifyContent(conv.LastMessage.Content)
		summary.LastMessage = conv.LastMessage.Content
		summary.LastMessageKind = parts.Kind
		summary.LastMessageAt = conv.LastMessage.Timestamp
	}
	return summary
}

func buildThread(messages []*entity.Message, sessionID string) []ThreadMessage {
	thread := make([]ThreadMessage, 0, len(messages))
	for _, message := range messages {
		thread = append(thread, ThreadMessage{
			ID:            message.ID,
			SenderID:      message.SenderID,
			Mine:          message.SenderID == sessionID,
			Parts:         service.ClassifyContent(message.Content),
			DeliveryState: message.DeliveryState,
			Timestamp:     message.Timestamp,
		})
	}
	return thread
}
