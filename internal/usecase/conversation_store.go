package usecase

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"weddinglink/internal/domain/entity"
	"weddinglink/internal/domain/repository"
	"weddinglink/pkg/errors"
)

// StoreEvent tags what kind of mutation a change notification describes,
// so projections like the badge aggregator can react without diffing.
type StoreEvent string

const (
	EventConversationsReplaced StoreEvent = "conversations_replaced"
	EventConversationsStale    StoreEvent = "conversations_stale"
	EventMessagesLoaded        StoreEvent = "messages_loaded"
	EventMessageAppended       StoreEvent = "message_appended"
	EventMessageUpdated        StoreEvent = "message_updated"
	EventMessageIngested       StoreEvent = "message_ingested"
	EventReadStateChanged      StoreEvent = "read_state_changed"
	EventActiveChanged         StoreEvent = "active_changed"
)

type StoreChange struct {
	Event          StoreEvent
	ConversationID string
}

type Subscriber func(StoreChange)

// ConversationStore is the single process-wide source of truth for
// conversations, the loaded message threads, unread counts and the active
// conversation pointer. Every surface reads through the same instance;
// none of them keep private copies. One store exists per authenticated
// session and is torn down on logout.
type ConversationStore struct {
	mu             sync.RWMutex
	session        entity.User
	messagingRepo  repository.MessagingRepository
	readStateRepo  repository.ReadStateRepository
	conversations  []*entity.Conversation
	index          map[string]*entity.Conversation
	messages       map[string][]*entity.Message
	activeID       string
	listErr        *errors.AppError
	messageErrs    map[string]*errors.AppError
	loads          singleflight.Group
	subscribers    map[int]Subscriber
	nextSubscriber int
	closed         bool
}

// NewConversationStore builds a store for one authenticated session.
// readStateRepo may be nil; the read-marker cache is strictly optional.
func NewConversationStore(session entity.User, messagingRepo repository.MessagingRepository, readStateRepo repository.ReadStateRepository) *ConversationStore {
	return &ConversationStore{
		session:       session,
		messagingRepo: messagingRepo,
		readStateRepo: readStateRepo,
		index:         make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		messageErrs:   make(map[string]*errors.AppError),
		subscribers:   make(map[int]Subscriber),
	}
}

// Subscribe registers a change listener and returns its unsubscribe
// function. Listeners are invoked after every mutation, outside the
// store's lock, so they may read back through the store freely.
func (s *ConversationStore) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *ConversationStore) notify(change StoreChange) {
	s.mu.RLock()
	listeners := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// LoadConversations fetches the full conversation list and replaces the
// store's list wholesale. On failure the previous list stays untouched
// and the classified error is kept for surfaces to render a retry.
func (s *ConversationStore) LoadConversations(ctx context.Context) error {
	conversations, err := s.messagingRepo.ListConversations(ctx, s.session.ID)
	if err != nil {
		appErr := errors.From(err)
		s.mu.Lock()
		s.listErr = appErr
		s.mu.Unlock()
		return appErr
	}

	// Cached read markers can only suppress unread for conversations
	// whose latest message predates the marker; never the other way.
	if s.readStateRepo != nil {
		for _, conv := range conversations {
			if conv.UnreadCount == 0 || conv.LastMessage == nil {
				continue
			}
			at, ok, err := s.readStateRepo.LastRead(ctx, s.session.ID, conv.ID)
			if err != nil || !ok {
				continue
			}
			if !conv.LastMessage.Timestamp.After(at) {
				conv.UnreadCount = 0
			}
		}
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return lastActivity(conversations[i]).After(lastActivity(conversations[j]))
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Conflict("store is closed")
	}
	s.conversations = conversations
	s.index = make(map[string]*entity.Conversation, len(conversations))
	for _, conv := range conversations {
		s.index[conv.ID] = conv
	}
	if s.activeID != "" {
		if _, ok := s.index[s.activeID]; !ok {
			s.activeID = ""
		}
	}
	s.listErr = nil
	s.mu.Unlock()

	s.notify(StoreChange{Event: EventConversationsReplaced})
	return nil
}

func lastActivity(conv *entity.Conversation) time.Time {
	if conv.LastMessage != nil {
		return conv.LastMessage.Timestamp
	}
	return conv.CreatedAt
}

// LoadMessages fetches the history for one conversation. Concurrent calls
// for the same conversation coalesce onto a single request; all callers
// receive the same result. The result is stored under its conversation id
// even if the active pointer has since moved elsewhere; display always
// reads through the active pointer, so a late response can never clobber
// the visible thread.
func (s *ConversationStore) LoadMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	result, err, _ := s.loads.Do(conversationID, func() (interface{}, error) {
		messages, err := s.messagingRepo.ListMessages(ctx, conversationID)
		if err != nil {
			appErr := errors.From(err)
			s.mu.Lock()
			s.messageErrs[conversationID] = appErr
			s.mu.Unlock()
			return nil, appErr
		}

		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].Timestamp.Before(messages[j].Timestamp)
		})
		for _, message := range messages {
			if message.DeliveryState == "" {
				message.DeliveryState = entity.DeliverySent
			}
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, errors.Conflict("store is closed")
		}
		// A reload must not drop messages still in flight or failed
		// locally; they stay at the tail, in their original order.
		confirmed := make(map[string]bool, len(messages))
		for _, message := range messages {
			confirmed[message.ID] = true
		}
		merged := messages
		for _, local := range s.messages[conversationID] {
			if local.DeliveryState != entity.DeliverySent && !confirmed[local.ID] {
				merged = append(merged, local)
			}
		}
		s.messages[conversationID] = merged
		delete(s.messageErrs, conversationID)
		snapshot := cloneMessages(merged)
		s.mu.Unlock()

		s.notify(StoreChange{Event: EventMessagesLoaded, ConversationID: conversationID})
		return snapshot, nil
	})
	if err != nil {
		return nil, errors.From(err)
	}
	return result.([]*entity.Message), nil
}

// SetActiveConversation moves the active pointer. Activating a
// conversation with unread messages marks it read; it never loads
// messages itself; surfaces call LoadMessages so they control their own
// loading UX.
func (s *ConversationStore) SetActiveConversation(ctx context.Context, conversationID string) error {
	needRead := false

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Conflict("store is closed")
	}
	if conversationID != "" {
		conv, ok := s.index[conversationID]
		if !ok {
			s.mu.Unlock()
			return errors.NotFound("Conversation", nil)
		}
		needRead = conv.UnreadCount > 0
	}
	s.activeID = conversationID
	s.mu.Unlock()

	s.notify(StoreChange{Event: EventActiveChanged, ConversationID: conversationID})

	if needRead {
		return s.MarkAsRead(ctx, conversationID)
	}
	return nil
}

// MarkAsRead resets the conversation's unread count locally and
// acknowledges to the backend best-effort. A failed acknowledgement never
// rolls back the local reset; read state is not safety-critical.
func (s *ConversationStore) MarkAsRead(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Conflict("store is closed")
	}
	conv, ok := s.index[conversationID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Conversation", nil)
	}
	conv.UnreadCount = 0
	s.mu.Unlock()

	s.notify(StoreChange{Event: EventReadStateChanged, ConversationID: conversationID})

	if s.readStateRepo != nil {
		if err := s.readStateRepo.MarkRead(ctx, s.session.ID, conversationID, time.Now()); err != nil {
			log.Printf("MarkAsRead: failed to cache read marker for conversation %s: %v", conversationID, err)
		}
	}
	if err := s.messagingRepo.MarkRead(ctx, conversationID); err != nil {
		log.Printf("MarkAsRead: backend ack failed for conversation %s: %v (local reset kept)", conversationID, err)
	}
	return nil
}

// SendMessage is the central write path: validate, append an optimistic
// provisional message, then reconcile it in place with the backend's
// confirmation. The sender sees the message immediately; a failure leaves
// it visible and marked failed so the surface can offer a retry.
func (s *ConversationStore) SendMessage(ctx context.Context, conversationID, content, kind string) (*entity.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.Validation("Message content cannot be empty", nil)
	}
	if kind == "" {
		kind = "text"
	}

	provisional := &entity.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       s.session.ID,
		SenderRole:     s.session.Role,
		Content:        content,
		Type:           kind,
		Timestamp:      time.Now(),
		DeliveryState:  entity.DeliveryPending,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.Conflict("store is closed")
	}
	conv, ok := s.index[conversationID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NotFound("Conversation", nil)
	}
	s.messages[conversationID] = append(s.messages[conversationID], provisional)
	conv.LastMessage = &entity.LastMessage{
		Content:   provisional.Content,
		SenderID:  provisional.SenderID,
		Timestamp: provisional.Timestamp,
	}
	s.bumpLocked(conversationID)
	s.mu.Unlock()

	s.notify(StoreChange{Event: EventMessageAppended, ConversationID: conversationID})

	confirmed, err := s.messagingRepo.CreateMessage(ctx, conversationID, content, kind)
	if err != nil {
		appErr := errors.From(err)
		s.mu.Lock()
		if slot := s.findMessageLocked(conversationID, provisional.ID); slot != nil {
			slot.DeliveryState = entity.DeliveryFailed
		}
		s.mu.Unlock()
		s.notify(StoreChange{Event: EventMessageUpdated, ConversationID: conversationID})
		log.Printf("SendMessage failed for conversation %s: %v", conversationID, appErr)
		return nil, appErr
	}

	s.mu.Lock()
	slot := s.findMessageLocked(conversationID, provisional.ID)
	if slot != nil {
		// In-place replacement: same slot, server identity, no reorder.
		if confirmed.ID != "" {
			slot.ID = confirmed.ID
		}
		if !confirmed.Timestamp.IsZero() {
			slot.Timestamp = confirmed.Timestamp
		}
		slot.DeliveryState = entity.DeliverySent
		if current, ok := s.index[conversationID]; ok && current.LastMessage != nil &&
			current.LastMessage.SenderID == s.session.ID && current.LastMessage.Content == slot.Content {
			current.LastMessage.Timestamp = slot.Timestamp
		}
	}
	var result *entity.Message
	if slot != nil {
		result = slot.Clone()
	} else {
		result = confirmed.Clone()
		result.DeliveryState = entity.DeliverySent
	}
	s.mu.Unlock()

	s.notify(StoreChange{Event: EventMessageUpdated, ConversationID: conversationID})
	return result, nil
}

// IngestIncoming applies a counterpart message delivered by push. It
// appends to the thread if it is resident, refreshes the conversation's
// last-message snapshot, and bumps the unread count only when the
// conversation is not the active one.
func (s *ConversationStore) IngestIncoming(message *entity.Message) {
	if message == nil || message.ConversationID == "" {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if message.SenderID == s.session.ID {
		// Our own sends are reconciled by SendMessage; a push echo of
		// one must not duplicate it or touch unread counts.
		s.mu.Unlock()
		return
	}
	conv, ok := s.index[message.ConversationID]
	if !ok {
		s.mu.Unlock()
		log.Printf("IngestIncoming: message for unknown conversation %s, list is stale", message.ConversationID)
		s.notify(StoreChange{Event: EventConversationsStale, ConversationID: message.ConversationID})
		return
	}

	incoming := message.Clone()
	incoming.DeliveryState = entity.DeliverySent
	if incoming.Timestamp.IsZero() {
		incoming.Timestamp = time.Now()
	}
	if _, resident := s.messages[conv.ID]; resident {
		s.messages[conv.ID] = append(s.messages[conv.ID], incoming)
	}
	conv.LastMessage = &entity.LastMessage{
		Content:   incoming.Content,
		SenderID:  incoming.SenderID,
		Timestamp: incoming.Timestamp,
	}
	if conv.ID != s.activeID {
		conv.UnreadCount++
	}
	s.bumpLocked(conv.ID)
	s.mu.Unlock()

	s.notify(StoreChange{Event: EventMessageIngested, ConversationID: conv.ID})
}

// Close tears the store down on logout. All in-memory state is cleared;
// only the best-effort read-state cache survives.
func (s *ConversationStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.conversations = nil
	s.index = make(map[string]*entity.Conversation)
	s.messages = make(map[string][]*entity.Message)
	s.messageErrs = make(map[string]*errors.AppError)
	s.subscribers = make(map[int]Subscriber)
	s.activeID = ""
	s.mu.Unlock()
}

func (s *ConversationStore) Session() entity.User {
	return s.session
}

// Conversations returns a snapshot of the list, most recently active
// first.
func (s *ConversationStore) Conversations() []*entity.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]*entity.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		snapshot = append(snapshot, conv.Clone())
	}
	return snapshot
}

func (s *ConversationStore) Conversation(conversationID string) (*entity.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// Messages returns a snapshot of the loaded thread for a conversation, or
// nil if it is not resident.
func (s *ConversationStore) Messages(conversationID string) []*entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages[conversationID])
}

func (s *ConversationStore) ActiveConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// ActiveMessages reads the displayed thread: always the slice keyed by
// the active pointer, never whichever load finished last.
func (s *ConversationStore) ActiveMessages() []*entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return nil
	}
	return cloneMessages(s.messages[s.activeID])
}

func (s *ConversationStore) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, conv := range s.conversations {
		total += conv.UnreadCount
	}
	return total
}

func (s *ConversationStore) ListError() *errors.AppError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listErr
}

func (s *ConversationStore) MessagesError(conversationID string) *errors.AppError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageErrs[conversationID]
}

func (s *ConversationStore) findMessageLocked(conversationID, messageID string) *entity.Message {
	for _, message := range s.messages[conversationID] {
		if message.ID == messageID {
			return message
		}
	}
	return nil
}

// bumpLocked moves a conversation to the front of the ordering.
func (s *ConversationStore) bumpLocked(conversationID string) {
	for i, conv := range s.conversations {
		if conv.ID == conversationID {
			if i > 0 {
				copy(s.conversations[1:i+1], s.conversations[:i])
				s.conversations[0] = conv
			}
			return
		}
	}
}

func cloneMessages(messages []*entity.Message) []*entity.Message {
	if messages == nil {
		return nil
	}
	snapshot := make([]*entity.Message, 0, len(messages))
	for _, message := range messages {
		snapshot = append(snapshot, message.Clone())
	}
	return snapshot
}
