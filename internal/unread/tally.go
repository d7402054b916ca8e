// Package unread reduces notifications, invitations and conversations into
// the badge count shown on every authenticated page.
package unread

import (
	"github.com/becayis/chatcore/internal/model"
)

// Tally is one committed unread snapshot.
type Tally struct {
	Notifications      int `json:"notifications"`
	PendingInvitations int `json:"pending_invitations"`
	UnreadMessages     int `json:"unread_messages"`
}

// Total is the badge value.
func (t Tally) Total() int {
	return t.Notifications + t.PendingInvitations + t.UnreadMessages
}

// Compute reduces the three sources for selfID. Only received invitations
// count, and a conversation counts when its last message is unread and
// was sent by someone else.
func Compute(selfID string, notifications []model.Notification, invitations *model.InvitationList, conversations []model.Conversation) Tally {
	var t Tally
	for _, n := range notifications {
		if !n.Read {
			t.Notifications++
		}
	}
	if invitations != nil {
		for _, inv := range invitations.Received {
			if inv.Status == model.InvitationPending {
				t.PendingInvitations++
			}
		}
	}
	for i := range conversations {
		if conversations[i].HasUnreadFrom(selfID) {
			t.UnreadMessages++
		}
	}
	return t
}
