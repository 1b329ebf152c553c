package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weddinglink/internal/domain/entity"
	"weddinglink/pkg/errors"
)

type fakeMessagingRepo struct {
	mu                sync.Mutex
	conversations     []*entity.Conversation
	messagesByConv    map[string][]*entity.Message
	listMessagesCalls map[string]int
	createCalls       int
	markReadCalls     []string
	listConvErr       error
	listMsgErr        error
	createErr         error
	markReadErr       error
	blockListMessages chan struct{}
	blockCreate       chan struct{}
	serverCounter     int
}

func newFakeMessagingRepo() *fakeMessagingRepo {
	return &fakeMessagingRepo{
		messagesByConv:    make(map[string][]*entity.Message),
		listMessagesCalls: make(map[string]int),
	}
}

func (f *fakeMessagingRepo) ListConversations(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listConvErr != nil {
		return nil, f.listConvErr
	}
	out := make([]*entity.Conversation, 0, len(f.conversations))
	for _, conv := range f.conversations {
		out = append(out, conv.Clone())
	}
	return out, nil
}

func (f *fakeMessagingRepo) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	f.mu.Lock()
	f.listMessagesCalls[conversationID]++
	block := f.blockListMessages
	err := f.listMsgErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Message, 0, len(f.messagesByConv[conversationID]))
	for _, message := range f.messagesByConv[conversationID] {
		out = append(out, message.Clone())
	}
	return out, nil
}

func (f *fakeMessagingRepo) CreateMessage(ctx context.Context, conversationID, content, messageType string) (*entity.Message, error) {
	f.mu.Lock()
	f.createCalls++
	block := f.blockCreate
	err := f.createErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.serverCounter++
	return &entity.Message{
		ID:             fmt.Sprintf("srv-%d", f.serverCounter),
		ConversationID: conversationID,
		Content:        content,
		Type:           messageType,
		Timestamp:      time.Now(),
	}, nil
}

func (f *fakeMessagingRepo) MarkRead(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, conversationID)
	return f.markReadErr
}

func testConversation(id string, unread int, lastAt time.Time) *entity.Conversation {
	return &entity.Conversation{
		ID:           id,
		Participants: []string{"me", "them-" + id},
		UnreadCount:  unread,
		CreatedAt:    lastAt.Add(-time.Hour),
		LastMessage: &entity.LastMessage{
			Content:   "hello from " + id,
			SenderID:  "them-" + id,
			Timestamp: lastAt,
		},
	}
}

func newTestStore(t *testing.T, repo *fakeMessagingRepo) *ConversationStore {
	t.Helper()
	store := NewConversationStore(entity.User{ID: "me", Role: entity.RoleClient, Name: "Me", Email: "me@example.com"}, repo, nil)
	require.NoError(t, store.LoadConversations(context.Background()))
	return store
}

func TestLoadConversationsOrdersMostRecentFirst(t *testing.T) {
	repo := newFakeMessagingRepo()
	now := time.Now()
	repo.conversations = []*entity.Conversation{
		testConversation("c1", 0, now.Add(-2*time.Hour)),
		testConversation("c2", 1, now),
		testConversation("c3", 0, now.Add(-time.Hour)),
	}

	store := newTestStore(t, repo)

	conversations := store.Conversations()
	require.Len(t, conversations, 3)
	assert.Equal(t, "c2", conversations[0].ID)
	assert.Equal(t, "c3", conversations[1].ID)
	assert.Equal(t, "c1", conversations[2].ID)
	assert.Nil(t, store.ListError())
}

func TestLoadConversationsFailureKeepsExistingState(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 2, time.Now())}

	store := newTestStore(t, repo)

	repo.mu.Lock()
	repo.listConvErr = errors.Network("Could not reach the messaging service", nil)
	repo.mu.Unlock()

	err := store.LoadConversations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NETWORK_ERROR"))

	conversations := store.Conversations()
	require.Len(t, conversations, 1)
	assert.Equal(t, "c1", conversations[0].ID)
	assert.Equal(t, 2, conversations[0].UnreadCount)
	require.NotNil(t, store.ListError())
	assert.Equal(t, "NETWORK_ERROR", store.ListError().Code)
}

func TestSendMessageOptimisticThenConfirm(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}
	repo.blockCreate = make(chan struct{})

	store := newTestStore(t, repo)

	done := make(chan struct{})
	var sent *entity.Message
	var sendErr error
	go func() {
		sent, sendErr = store.SendMessage(context.Background(), "c1", "Hello", "text")
		close(done)
	}()

	// The provisional message is visible before the backend responds.
	require.Eventually(t, func() bool {
		return len(store.Messages("c1")) == 1
	}, time.Second, 5*time.Millisecond)

	pending := store.Messages("c1")
	require.Len(t, pending, 1)
	assert.Equal(t, entity.DeliveryPending, pending[0].DeliveryState)
	assert.Equal(t, "Hello", pending[0].Content)
	provisionalID := pending[0].ID

	conv, ok := store.Conversation("c1")
	require.True(t, ok)
	assert.Equal(t, "Hello", conv.LastMessage.Content)
	assert.Equal(t, "me", conv.LastMessage.SenderID)

	close(repo.blockCreate)
	<-done
	require.NoError(t, sendErr)

	// Replacement, not insertion: same length, same slot, server id.
	messages := store.Messages("c1")
	require.Len(t, messages, 1)
	assert.Equal(t, entity.DeliverySent, messages[0].DeliveryState)
	assert.NotEqual(t, provisionalID, messages[0].ID)
	assert.Equal(t, messages[0].ID, sent.ID)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, 0, store.TotalUnread())
}

func TestSendMessageEmptyContentRejectedWithoutNetworkCall(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}

	store := newTestStore(t, repo)

	_, err := store.SendMessage(context.Background(), "c1", "   ", "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "VALIDATION_ERROR"))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Zero(t, repo.createCalls)
	assert.Empty(t, store.Messages("c1"))
}

func TestSendMessageFailureLeavesFailedMessageVisible(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}
	repo.createErr = errors.Network("Could not reach the messaging service", nil)

	store := newTestStore(t, repo)

	_, err := store.SendMessage(context.Background(), "c1", "Are you free Saturday?", "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NETWORK_ERROR"))

	messages := store.Messages("c1")
	require.Len(t, messages, 1)
	assert.Equal(t, entity.DeliveryFailed, messages[0].DeliveryState)
	assert.Equal(t, "Are you free Saturday?", messages[0].Content)
}

func TestIngestIncomingUnreadInvariant(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{
		testConversation("c1", 0, time.Now()),
		testConversation("c2", 0, time.Now().Add(-time.Minute)),
	}

	store := newTestStore(t, repo)
	require.NoError(t, store.SetActiveConversation(context.Background(), "c1"))
	_, err := store.LoadMessages(context.Background(), "c1")
	require.NoError(t, err)

	// Incoming for the active conversation: appended, unread untouched.
	store.IngestIncoming(&entity.Message{
		ID:             "m-active",
		ConversationID: "c1",
		SenderID:       "them-c1",
		Content:        "Looking forward to it!",
		Timestamp:      time.Now(),
	})
	conv, _ := store.Conversation("c1")
	assert.Equal(t, 0, conv.UnreadCount)
	assert.Equal(t, "Looking forward to it!", conv.LastMessage.Content)
	messages := store.Messages("c1")
	assert.Equal(t, "m-active", messages[len(messages)-1].ID)

	// Incoming for a background conversation: unread increments by one
	// and the conversation bumps to the front of the list.
	store.IngestIncoming(&entity.Message{
		ID:             "m-background",
		ConversationID: "c2",
		SenderID:       "them-c2",
		Content:        "New quote attached",
		Timestamp:      time.Now(),
	})
	conv, _ = store.Conversation("c2")
	assert.Equal(t, 1, conv.UnreadCount)
	assert.Equal(t, 1, store.TotalUnread())
	assert.Equal(t, "c2", store.Conversations()[0].ID)
}

func TestSetActiveConversationMarksReadImmediately(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 3, time.Now())}
	repo.markReadErr = errors.Server("Messaging service returned 500", nil)

	store := newTestStore(t, repo)

	require.NoError(t, store.SetActiveConversation(context.Background(), "c1"))

	// The local reset is synchronous and survives a failed backend ack.
	conv, _ := store.Conversation("c1")
	assert.Equal(t, 0, conv.UnreadCount)
	assert.Equal(t, "c1", store.ActiveConversationID())

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []string{"c1"}, repo.markReadCalls)
}

func TestSetActiveConversationWithoutUnreadSkipsAck(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}

	store := newTestStore(t, repo)
	require.NoError(t, store.SetActiveConversation(context.Background(), "c1"))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Empty(t, repo.markReadCalls)
}

func TestStaleLoadDoesNotClobberActiveThread(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{
		testConversation("a", 0, time.Now()),
		testConversation("b", 0, time.Now().Add(-time.Minute)),
	}
	repo.messagesByConv["a"] = []*entity.Message{
		{ID: "a-1", ConversationID: "a", SenderID: "them-a", Content: "thread A", Timestamp: time.Now()},
	}
	repo.messagesByConv["b"] = []*entity.Message{
		{ID: "b-1", ConversationID: "b", SenderID: "them-b", Content: "thread B", Timestamp: time.Now()},
	}

	store := newTestStore(t, repo)

	// Start loading A, but hold the response open.
	blockA := make(chan struct{})
	repo.mu.Lock()
	repo.blockListMessages = blockA
	repo.mu.Unlock()

	loadedA := make(chan struct{})
	go func() {
		_, _ = store.LoadMessages(context.Background(), "a")
		close(loadedA)
	}()
	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.listMessagesCalls["a"] == 1
	}, time.Second, 5*time.Millisecond)

	// The user moves on to B while A's response is still in flight.
	repo.mu.Lock()
	repo.blockListMessages = nil
	repo.mu.Unlock()
	require.NoError(t, store.SetActiveConversation(context.Background(), "b"))
	_, err := store.LoadMessages(context.Background(), "b")
	require.NoError(t, err)

	// A's late response lands: stored under A, but the displayed thread
	// is still B's.
	close(blockA)
	<-loadedA

	active := store.ActiveMessages()
	require.Len(t, active, 1)
	assert.Equal(t, "b-1", active[0].ID)

	storedA := store.Messages("a")
	require.Len(t, storedA, 1)
	assert.Equal(t, "a-1", storedA[0].ID)
}

func TestLoadMessagesDeduplicatesInFlightRequests(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}
	repo.messagesByConv["c1"] = []*entity.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "them-c1", Content: "hi", Timestamp: time.Now()},
	}
	repo.blockListMessages = make(chan struct{})

	store := newTestStore(t, repo)

	var wg sync.WaitGroup
	results := make([][]*entity.Message, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			messages, err := store.LoadMessages(context.Background(), "c1")
			require.NoError(t, err)
			results[i] = messages
		}(i)
	}

	// Let both callers attach to the in-flight load before releasing it.
	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.listMessagesCalls["c1"] >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.blockListMessages)
	wg.Wait()

	repo.mu.Lock()
	assert.Equal(t, 1, repo.listMessagesCalls["c1"])
	repo.mu.Unlock()

	require.Len(t, results[0], 1)
	require.Len(t, results[1], 1)
	assert.Equal(t, results[0][0].ID, results[1][0].ID)
}

func TestLoadMessagesFailurePreservesLoadedThread(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}
	repo.messagesByConv["c1"] = []*entity.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "them-c1", Content: "hi", Timestamp: time.Now()},
	}

	store := newTestStore(t, repo)
	_, err := store.LoadMessages(context.Background(), "c1")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.listMsgErr = errors.Server("Messaging service returned 500", nil)
	repo.mu.Unlock()

	_, err = store.LoadMessages(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "SERVER_ERROR"))

	messages := store.Messages("c1")
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
	require.NotNil(t, store.MessagesError("c1"))
}

func TestLoadMessagesKeepsUnconfirmedTail(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}
	repo.messagesByConv["c1"] = []*entity.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "them-c1", Content: "hi", Timestamp: time.Now().Add(-time.Minute)},
	}
	repo.createErr = errors.Network("Could not reach the messaging service", nil)

	store := newTestStore(t, repo)

	_, err := store.SendMessage(context.Background(), "c1", "did you get my note?", "text")
	require.Error(t, err)

	// A reload must not drop the failed message awaiting retry.
	_, err = store.LoadMessages(context.Background(), "c1")
	require.NoError(t, err)

	messages := store.Messages("c1")
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, entity.DeliveryFailed, messages[1].DeliveryState)
	assert.Equal(t, "did you get my note?", messages[1].Content)
}

func TestIngestIncomingIgnoresOwnEcho(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}

	store := newTestStore(t, repo)
	_, err := store.LoadMessages(context.Background(), "c1")
	require.NoError(t, err)

	store.IngestIncoming(&entity.Message{
		ID:             "echo-1",
		ConversationID: "c1",
		SenderID:       "me",
		Content:        "my own message echoed back",
		Timestamp:      time.Now(),
	})

	assert.Empty(t, store.Messages("c1"))
	conv, _ := store.Conversation("c1")
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestIngestIncomingUnknownConversationSignalsStaleList(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 0, time.Now())}

	store := newTestStore(t, repo)

	var mu sync.Mutex
	var events []StoreChange
	unsubscribe := store.Subscribe(func(change StoreChange) {
		mu.Lock()
		events = append(events, change)
		mu.Unlock()
	})
	defer unsubscribe()

	store.IngestIncoming(&entity.Message{
		ID:             "m-new",
		ConversationID: "brand-new",
		SenderID:       "someone",
		Content:        "hello?",
		Timestamp:      time.Now(),
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, EventConversationsStale, events[0].Event)
	assert.Equal(t, "brand-new", events[0].ConversationID)
}

func TestCloseClearsAllState(t *testing.T) {
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{testConversation("c1", 1, time.Now())}

	store := newTestStore(t, repo)
	require.NoError(t, store.SetActiveConversation(context.Background(), "c1"))

	store.Close()

	assert.Empty(t, store.Conversations())
	assert.Empty(t, store.ActiveConversationID())
	assert.Zero(t, store.TotalUnread())

	err := store.LoadConversations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "CONFLICT"))
	_, err = store.SendMessage(context.Background(), "c1", "hello", "text")
	require.Error(t, err)
}

type fakeReadStateRepo struct {
	mu      sync.Mutex
	markers map[string]time.Time
}

func newFakeReadStateRepo() *fakeReadStateRepo {
	return &fakeReadStateRepo{markers: make(map[string]time.Time)}
}

func (f *fakeReadStateRepo) MarkRead(ctx context.Context, userID, conversationID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers[userID+"/"+conversationID] = at
	return nil
}

func (f *fakeReadStateRepo) LastRead(ctx context.Context, userID, conversationID string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.markers[userID+"/"+conversationID]
	return at, ok, nil
}

func (f *fakeReadStateRepo) Close() error { return nil }

func TestLoadConversationsAppliesCachedReadMarkers(t *testing.T) {
	now := time.Now()
	repo := newFakeMessagingRepo()
	repo.conversations = []*entity.Conversation{
		testConversation("seen", 2, now.Add(-time.Hour)),
		testConversation("unseen", 2, now),
	}

	readState := newFakeReadStateRepo()
	require.NoError(t, readState.MarkRead(context.Background(), "me", "seen", now.Add(-30*time.Minute)))
	require.NoError(t, readState.MarkRead(context.Background(), "me", "unseen", now.Add(-30*time.Minute)))

	store := NewConversationStore(entity.User{ID: "me", Role: entity.RoleClient}, repo, readState)
	require.NoError(t, store.LoadConversations(context.Background()))

	// The cached marker postdates "seen"'s last message, so its unread
	// count is suppressed; "unseen" has newer traffic and keeps its
	// backend count.
	seen, _ := store.Conversation("seen")
	assert.Equal(t, 0, seen.UnreadCount)
	unseen, _ := store.Conversation("unseen")
	assert.Equal(t, 2, unseen.UnreadCount)
}
