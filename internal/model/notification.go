package model

import (
	"time"
)

// Notification types created by the backend.
const (
	NotificationInvitation         = "invitation"
	NotificationInvitationAccepted = "invitation_accepted"
	NotificationInvitationRejected = "invitation_rejected"
	NotificationMessage            = "message"
)

// Notification is an entry of GET /notifications.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
