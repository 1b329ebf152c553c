package usecase

import "sync"

// BadgeAggregator derives the unread badge and the "new message" signal
// from store state. The total is a pure projection recomputed on demand
// and is never stored independently, so it cannot drift from the
// underlying conversations.
type BadgeAggregator struct {
	store       *ConversationStore
	mu          sync.Mutex
	signal      bool
	signalConv  string
	unsubscribe func()
}

func NewBadgeAggregator(store *ConversationStore) *BadgeAggregator {
	b := &BadgeAggregator{store: store}
	b.unsubscribe = store.Subscribe(func(change StoreChange) {
		if change.Event != EventMessageIngested {
			return
		}
		b.mu.Lock()
		b.signal = true
		b.signalConv = change.ConversationID
		b.mu.Unlock()
	})
	return b
}

func (b *BadgeAggregator) TotalUnread() int {
	return b.store.TotalUnread()
}

// ConsumeSignal reports whether a counterpart message arrived since the
// last call, and for which conversation. Surfaces not showing the live
// thread use it to flash their badge once per arrival.
func (b *BadgeAggregator) ConsumeSignal() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.signal {
		return "", false
	}
	b.signal = false
	conversationID := b.signalConv
	b.signalConv = ""
	return conversationID, true
}

func (b *BadgeAggregator) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}
