package surface

import (
	"context"

	"weddinglink/internal/domain/entity"
	"weddinglink/internal/usecase"
)

// Modal is the dialog pinned to a single conversation, e.g. the chat
// opened from a vendor's booking card. It binds to the shared store like
// every other surface; it has no thread state of its own.
type Modal struct {
	store          *usecase.ConversationStore
	names          *usecase.DisplayNameResolver
	conversationID string
}

type ModalView struct {
	ConversationID string          `json:"conversation_id"`
	Title          string          `json:"title"`
	Thread         []ThreadMessage `json:"thread"`
	UnreadCount    int             `json:"unread_count"`
	ThreadError    string          `json:"thread_error,omitempty"`
}

func NewModal(store *usecase.ConversationStore, names *usecase.DisplayNameResolver, conversationID string) *Modal {
	return &Modal{store: store, names: names, conversationID: conversationID}
}

// Open activates the modal's conversation and loads its history.
func (m *Modal) Open(ctx context.Context) error {
	if err := m.store.SetActiveConversation(ctx, m.conversationID); err != nil {
		return err
	}
	_, err := m.store.LoadMessages(ctx, m.conversationID)
	return err
}

func (m *Modal) View() ModalView {
	view := ModalView{
		ConversationID: m.conversationID,
		Title:          "Conversation",
	}
	if conv, ok := m.store.Conversation(m.conversationID); ok {
		view.Title = m.names.Resolve(conv)
		view.UnreadCount = conv.UnreadCount
	}
	view.Thread = buildThread(m.store.Messages(m.conversationID), m.store.Session().ID)
	if threadErr := m.store.MessagesError(m.conversationID); threadErr != nil {
		view.ThreadError = threadErr.Message
	}
	return view
}

func (m *Modal) Send(ctx context.Context, content, kind string) (*entity.Message, error) {
	return m.store.SendMessage(ctx, m.conversationID, content, kind)
}
