package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weddinglink/pkg/errors"
)

func TestListConversationsSendsBearerTokenAndDecodesList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/conversations/user-1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "conv-1",
				"participants": ["user-1", "vendor-1"],
				"participant_name": "Bloom & Petal Florals",
				"unread_count": 2,
				"last_message": {
					"content": "See you Saturday",
					"sender_id": "vendor-1",
					"timestamp": "2026-08-30T10:00:00Z"
				},
				"created_at": "2026-08-01T09:00:00Z"
			}
		]`))
	}))
	defer server.Close()

	repo := NewRestMessagingRepository(server.URL, "test-token", server.Client())

	conversations, err := repo.ListConversations(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "conv-1", conversations[0].ID)
	assert.Equal(t, "Bloom & Petal Florals", conversations[0].ParticipantName)
	assert.Equal(t, 2, conversations[0].UnreadCount)
	require.NotNil(t, conversations[0].LastMessage)
	assert.Equal(t, "vendor-1", conversations[0].LastMessage.SenderID)
}

func TestListMessagesDecodesThread(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/conv-1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "m1", "conversation_id": "conv-1", "sender_id": "vendor-1", "content": "hi", "type": "text", "timestamp": "2026-08-30T10:00:00Z"},
			{"id": "m2", "conversation_id": "conv-1", "sender_id": "user-1", "content": "hello", "type": "text", "timestamp": "2026-08-30T10:01:00Z"}
		]`))
	}))
	defer server.Close()

	repo := NewRestMessagingRepository(server.URL, "test-token", server.Client())

	messages, err := repo.ListMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "hello", messages[1].Content)
}

func TestCreateMessagePostsContentAndType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/conversations/conv-1/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Is the venue still available?", body["content"])
		assert.Equal(t, "text", body["type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "srv-1", "conversation_id": "conv-1", "sender_id": "user-1", "content": "Is the venue still available?", "type": "text", "timestamp": "2026-08-30T10:02:00Z"}`))
	}))
	defer server.Close()

	repo := NewRestMessagingRepository(server.URL, "test-token", server.Client())

	message, err := repo.CreateMessage(context.Background(), "conv-1", "Is the venue still available?", "text")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", message.ID)
	assert.Equal(t, "conv-1", message.ConversationID)
}

func TestMarkReadPostsAcknowledgement(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	repo := NewRestMessagingRepository(server.URL, "test-token", server.Client())

	require.NoError(t, repo.MarkRead(context.Background(), "conv-1"))
	assert.Equal(t, "/conversations/conv-1/read", path)
}

func TestStatusCodesMapToErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, "AUTH_ERROR"},
		{"forbidden", http.StatusForbidden, "AUTH_ERROR"},
		{"not found", http.StatusNotFound, "NOT_FOUND"},
		{"server error", http.StatusInternalServerError, "SERVER_ERROR"},
		{"bad request", http.StatusBadRequest, "SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			repo := NewRestMessagingRepository(server.URL, "test-token", server.Client())

			_, err := repo.ListConversations(context.Background(), "user-1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}
}

func TestUnreachableBackendClassifiedAsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	repo := NewRestMessagingRepository(server.URL, "test-token", nil)

	_, err := repo.ListConversations(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NETWORK_ERROR"))
}

func TestMalformedResponseClassifiedAsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer server.Close()

	repo := NewRestMessagingRepository(server.URL, "test-token", server.Client())

	_, err := repo.ListMessages(context.Background(), "conv-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "SERVER_ERROR"))
}
