// Package model defines the data exchanged with the Becayiş backend, over
// REST and over the live channel.
package model

import (
	"time"
)

// Conversation is a chat thread between the two sides of an accepted
// invitation.
type Conversation struct {
	ID           string       `json:"id"`
	Participants []string     `json:"participants"`
	InvitationID string       `json:"invitation_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	OtherUser    *Participant `json:"other_user,omitempty"`
	LastMessage  *Message     `json:"last_message"`
}

// HasUnreadFrom reports whether the last message is unread and was sent by
// someone other than selfID.
func (c *Conversation) HasUnreadFrom(selfID string) bool {
	return c.LastMessage != nil && !c.LastMessage.Read && c.LastMessage.SenderID != selfID
}

// OtherParticipant returns the participant id that is not selfID.
func (c *Conversation) OtherParticipant(selfID string) string {
	for _, p := range c.Participants {
		if p != selfID {
			return p
		}
	}
	return ""
}
