package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/becayis/chatcore/internal/model"
)

// InvitationService manages swap invitations and opens a conversation
// when one is accepted.
type InvitationService struct {
	conversations *ConversationService
	notifications *NotificationService

	mu          sync.RWMutex
	invitations map[string]*model.Invitation
}

// NewInvitationService creates an empty invitation service.
func NewInvitationService(conversations *ConversationService, notifications *NotificationService) *InvitationService {
	return &InvitationService{
		conversations: conversations,
		notifications: notifications,
		invitations:   make(map[string]*model.Invitation),
	}
}

// Create records a pending invitation and notifies the receiver.
func (s *InvitationService) Create(ctx context.Context, senderID, receiverID, listingID string) (*model.Invitation, error) {
	if senderID == receiverID {
		return nil, invalid("Kendi ilanınıza davet gönderemezsiniz")
	}

	s.mu.Lock()
	for _, inv := range s.invitations {
		if inv.SenderID == senderID && inv.ListingID == listingID && inv.Status == model.InvitationPending {
			s.mu.Unlock()
			return nil, invalid("Bu ilana zaten davet gönderdiniz")
		}
	}
	inv := &model.Invitation{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Status:     model.InvitationPending,
		CreatedAt:  time.Now().UTC(),
	}
	s.invitations[inv.ID] = inv
	out := *inv
	s.mu.Unlock()

	s.notifications.Create(ctx, receiverID, "Yeni Davet", "İlanınıza yeni bir değişim daveti aldınız", model.NotificationInvitation)
	return &out, nil
}

// List returns invitations sent and received by userID, newest first.
func (s *InvitationService) List(_ context.Context, userID string) *model.InvitationList {
	out := &model.InvitationList{Sent: []model.Invitation{}, Received: []model.Invitation{}}

	s.mu.RLock()
	for _, inv := range s.invitations {
		switch userID {
		case inv.SenderID:
			out.Sent = append(out.Sent, *inv)
		case inv.ReceiverID:
			out.Received = append(out.Received, *inv)
		}
	}
	s.mu.RUnlock()

	newest := func(list []model.Invitation) func(i, j int) bool {
		return func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) }
	}
	sort.Slice(out.Sent, newest(out.Sent))
	sort.Slice(out.Received, newest(out.Received))
	return out
}

// Respond accepts or rejects a pending invitation addressed to userID.
func (s *InvitationService) Respond(ctx context.Context, userID string, req model.RespondInvitationRequest) (*model.RespondInvitationResponse, error) {
	if req.Action != model.ActionAccept && req.Action != model.ActionReject {
		return nil, invalid("Geçersiz işlem")
	}

	s.mu.Lock()
	inv, ok := s.invitations[req.InvitationID]
	switch {
	case !ok:
		s.mu.Unlock()
		return nil, notFound("Davet bulunamadı")
	case inv.ReceiverID != userID:
		s.mu.Unlock()
		return nil, forbidden("Bu işlem için yetkiniz yok")
	case inv.Status != model.InvitationPending:
		s.mu.Unlock()
		return nil, invalid("Bu davet zaten yanıtlanmış")
	}
	if req.Action == model.ActionAccept {
		inv.Status = model.InvitationAccepted
	} else {
		inv.Status = model.InvitationRejected
	}
	accepted := *inv
	s.mu.Unlock()

	if req.Action == model.ActionReject {
		s.notifications.Create(ctx, accepted.SenderID, "Davet Reddedildi",
			"Gönderdiğiniz değişim daveti reddedildi", model.NotificationInvitationRejected)
		return &model.RespondInvitationResponse{Message: "Davet reddedildi"}, nil
	}

	conv, err := s.conversations.Create(ctx, accepted.ID, accepted.SenderID, accepted.ReceiverID)
	if err != nil {
		return nil, err
	}
	s.notifications.Create(ctx, accepted.SenderID, "Davet Kabul Edildi",
		"Gönderdiğiniz değişim daveti kabul edildi. Artık mesajlaşabilirsiniz!", model.NotificationInvitationAccepted)
	return &model.RespondInvitationResponse{Message: "Davet kabul edildi", ConversationID: conv.ID}, nil
}
