package model

import (
	"time"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// Invitation actions accepted by POST /invitations/respond.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Invitation is a swap request sent for a listing.
type Invitation struct {
	ID         string           `json:"id"`
	SenderID   string           `json:"sender_id"`
	ReceiverID string           `json:"receiver_id"`
	ListingID  string           `json:"listing_id"`
	Status     InvitationStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// InvitationList is the response of GET /invitations.
type InvitationList struct {
	Sent     []Invitation `json:"sent"`
	Received []Invitation `json:"received"`
}

// RespondInvitationRequest is the body of POST /invitations/respond.
type RespondInvitationRequest struct {
	InvitationID string `json:"invitation_id"`
	Action       string `json:"action"`
}

// RespondInvitationResponse is returned by POST /invitations/respond.
type RespondInvitationResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}
