package model

import (
	"time"
)

// Message is one chat message. IDs are assigned by the server and stable.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Participant is a member of a conversation as returned with its history.
type Participant struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Institution string `json:"institution,omitempty"`
	Role        string `json:"role,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ConversationHistory is the response of GET /conversations/{id}/messages.
type ConversationHistory struct {
	Messages     []Message     `json:"messages"`
	Participants []Participant `json:"participants"`
}

// SendMessageRequest is the body of POST /messages.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// BlockUserRequest is the body of POST /block.
type BlockUserRequest struct {
	BlockedUserID string `json:"blocked_user_id"`
	Reason        string `json:"reason,omitempty"`
}
