package repository

import (
	"context"

	"weddinglink/internal/domain/entity"
)

// MessagingRepository is the remote messaging backend as the store needs
// it. Implementations classify every failure into the pkg/errors taxonomy.
type MessagingRepository interface {
	ListConversations(ctx context.Context, userID string) ([]*entity.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	CreateMessage(ctx context.Context, conversationID, content, messageType string) (*entity.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}
