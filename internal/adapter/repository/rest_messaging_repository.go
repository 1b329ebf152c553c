package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"weddinglink/internal/domain/entity"
	"weddinglink/internal/domain/repository"
	"weddinglink/pkg/errors"
)

type restMessagingRepository struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewRestMessagingRepository(baseURL, token string, httpClient *http.Client) repository.MessagingRepository {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &restMessagingRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

func (r *restMessagingRepository) ListConversations(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	var conversations []*entity.Conversation
	err := r.do(ctx, http.MethodGet, fmt.Sprintf("/conversations/%s", userID), nil, &conversations)
	if err != nil {
		log.Printf("ListConversations failed for user %s: %v", userID, err)
		return nil, err
	}
	return conversations, nil
}

func (r *restMessagingRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := r.do(ctx, http.MethodGet, fmt.Sprintf("/conversations/%s/messages", conversationID), nil, &messages)
	if err != nil {
		log.Printf("ListMessages failed for conversation %s: %v", conversationID, err)
		return nil, err
	}
	return messages, nil
}

type createMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

func (r *restMessagingRepository) CreateMessage(ctx context.Context, conversationID, content, messageType string) (*entity.Message, error) {
	var message entity.Message
	body := createMessageRequest{Content: content, Type: messageType}
	err := r.do(ctx, http.MethodPost, fmt.Sprintf("/conversations/%s/messages", conversationID), body, &message)
	if err != nil {
		log.Printf("CreateMessage failed for conversation %s: %v", conversationID, err)
		return nil, err
	}
	return &message, nil
}

func (r *restMessagingRepository) MarkRead(ctx context.Context, conversationID string) error {
	return r.do(ctx, http.MethodPost, fmt.Sprintf("/conversations/%s/read", conversationID), nil, nil)
}

func (r *restMessagingRepository) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Internal("Failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return errors.Internal("Failed to build request", err)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return errors.Network("Could not reach the messaging service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.FromStatusCode(
			resp.StatusCode,
			fmt.Sprintf("Messaging service returned %d", resp.StatusCode),
			fmt.Errorf("%s %s: %s", method, path, strings.TrimSpace(string(detail))),
		)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Server("Messaging service returned an unreadable response", err)
	}
	return nil
}
