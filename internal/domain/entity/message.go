package entity

import "time"

type DeliveryState string

const (
	DeliveryPending DeliveryState = "pending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)

type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	SenderRole     string        `json:"sender_role,omitempty"`
	Content        string        `json:"content"`
	Type           string        `json:"type"` // "text", "image", "video", "file"
	Timestamp      time.Time     `json:"timestamp"`
	DeliveryState  DeliveryState `json:"delivery_state,omitempty"`
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
