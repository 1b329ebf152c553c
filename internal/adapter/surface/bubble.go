package surface

import "weddinglink/internal/usecase"

// Bubble is the floating chat bubble: an unread badge plus a preview of
// the most recently active conversation.
type Bubble struct {
	store *usecase.ConversationStore
	names *usecase.DisplayNameResolver
	badge *usecase.BadgeAggregator
}

type BubbleView struct {
	TotalUnread   int                  `json:"total_unread"`
	HasNewMessage bool                 `json:"has_new_message"`
	Preview       *ConversationSummary `json:"preview,omitempty"`
}

func NewBubble(store *usecase.ConversationStore, names *usecase.DisplayNameResolver, badge *usecase.BadgeAggregator) *Bubble {
	return &Bubble{store: store, names: names, badge: badge}
}

func (b *Bubble) View() BubbleView {
	view := BubbleView{
		TotalUnread: b.badge.TotalUnread(),
	}
	if _, ok := b.badge.ConsumeSignal(); ok {
		view.HasNewMessage = true
	}

	conversations := b.store.Conversations()
	if len(conversations) > 0 {
		preview := summarize(conversations[0], b.names, b.store.ActiveConversationID())
		view.Preview = &preview
	}
	return view
}
