package surface

import (
	"context"

	"weddinglink/internal/domain/entity"
	"weddinglink/internal/usecase"
)

// Page is the full messages page: the conversation list on one side, the
// active thread on the other.
type Page struct {
	store *usecase.ConversationStore
	names *usecase.DisplayNameResolver
}

type PageView struct {
	Conversations []ConversationSummary `json:"conversations"`
	ActiveID      string                `json:"active_id,omitempty"`
	ActiveName    string                `json:"active_name,omitempty"`
	Thread        []ThreadMessage       `json:"thread,omitempty"`
	ListError     string                `json:"list_error,omitempty"`
	ThreadError   string                `json:"thread_error,omitempty"`
}

func NewPage(store *usecase.ConversationStore, names *usecase.DisplayNameResolver) *Page {
	return &Page{store: store, names: names}
}

func (p *Page) View() PageView {
	activeID := p.store.ActiveConversationID()

	conversations := p.store.Conversations()
	view := PageView{
		Conversations: make([]ConversationSummary, 0, len(conversations)),
		ActiveID:      activeID,
	}
	for _, conv := range conversations {
		view.Conversations = append(view.Conversations, summarize(conv, p.names, activeID))
	}

	if activeID != "" {
		if conv, ok := p.store.Conversation(activeID); ok {
			view.ActiveName = p.names.Resolve(conv)
		}
		view.Thread = buildThread(p.store.ActiveMessages(), p.store.Session().ID)
		if threadErr := p.store.MessagesError(activeID); threadErr != nil {
			view.ThreadError = threadErr.Message
		}
	}
	if listErr := p.store.ListError(); listErr != nil {
		view.ListError = listErr.Message
	}
	return view
}

// Open is the "open conversation X" intent: activate it (which marks it
// read) and then load its history. Activation and loading stay separate
// store calls so the page controls its own loading UX.
func (p *Page) Open(ctx context.Context, conversationID string) error {
	if err := p.store.SetActiveConversation(ctx, conversationID); err != nil {
		return err
	}
	_, err := p.store.LoadMessages(ctx, conversationID)
	return err
}

func (p *Page) Send(ctx context.Context, content, kind string) (*entity.Message, error) {
	return p.store.SendMessage(ctx, p.store.ActiveConversationID(), content, kind)
}
