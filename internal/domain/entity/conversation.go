package entity

import "time"

// ServiceContext is attached at conversation-creation time and immutable
// afterwards: the service the couple reached out about and the vendor's
// business name, when the backend knew them.
type ServiceContext struct {
	ServiceType  string `json:"service_type,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
}

// LastMessage is a cached denormalization of the most recent message,
// refreshed whenever a message is sent or received for the conversation.
type LastMessage struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one persistent thread between the current user and one
// counterpart. The naming fields are intentionally redundant: depending on
// which role fetched the record, the backend fills different subsets of
// ParticipantName, ParticipantDisplayNames and the creator fields.
type Conversation struct {
	ID                      string            `json:"id"`
	Participants            []string          `json:"participants"`
	ParticipantDisplayNames map[string]string `json:"participant_display_names,omitempty"`
	ParticipantName         string            `json:"participant_name,omitempty"`
	CreatorID               string            `json:"creator_id,omitempty"`
	CreatorName             string            `json:"creator_name,omitempty"`
	LastMessage             *LastMessage      `json:"last_message,omitempty"`
	UnreadCount             int               `json:"unread_count"`
	ServiceContext          *ServiceContext   `json:"service_context,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
}

// Counterpart returns the first participant that is not the given user.
func (c *Conversation) Counterpart(userID string) string {
	for _, participantID := range c.Participants {
		if participantID != userID {
			return participantID
		}
	}
	return ""
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Participants = append([]string(nil), c.Participants...)
	if c.ParticipantDisplayNames != nil {
		clone.ParticipantDisplayNames = make(map[string]string, len(c.ParticipantDisplayNames))
		for id, name := range c.ParticipantDisplayNames {
			clone.ParticipantDisplayNames[id] = name
		}
	}
	if c.LastMessage != nil {
		lastMessage := *c.LastMessage
		clone.LastMessage = &lastMessage
	}
	if c.ServiceContext != nil {
		serviceContext := *c.ServiceContext
		clone.ServiceContext = &serviceContext
	}
	return &clone
}
