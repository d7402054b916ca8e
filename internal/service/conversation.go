package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/pkg/logger"
)

// ConversationService handles conversation operations.
type ConversationService struct {
	users  *UserService
	logger *logger.Logger

	// In-memory storage; the stand-in has no database.
	conversations map[string]*model.Conversation
	mu            sync.RWMutex
}

// NewConversationService creates a new conversation service.
func NewConversationService(users *UserService, log *logger.Logger) *ConversationService {
	return &ConversationService{
		users:         users,
		logger:        logger.OrNop(log).Named("conversations"),
		conversations: make(map[string]*model.Conversation),
	}
}

// Create opens a conversation between two users.
func (s *ConversationService) Create(_ context.Context, invitationID string, participants ...string) (*model.Conversation, error) {
	if len(participants) != 2 || participants[0] == participants[1] {
		return nil, invalid("Konuşma iki farklı kullanıcı arasında olmalı")
	}

	conv := &model.Conversation{
		ID:           uuid.NewString(),
		Participants: append([]string(nil), participants...),
		InvitationID: invitationID,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("invitation_id", invitationID),
	)
	return cloneConversation(conv), nil
}

// Get returns a conversation the user participates in.
func (s *ConversationService) Get(_ context.Context, userID, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	conv, exists := s.conversations[conversationID]
	s.mu.RUnlock()

	if !exists {
		return nil, notFound("Konuşma bulunamadı")
	}
	if !isParticipant(conv, userID) {
		return nil, forbidden("Bu işlem için yetkiniz yok")
	}
	return cloneConversation(conv), nil
}

// List returns the user's conversations, newest first, with the other
// participant's profile and the last message.
func (s *ConversationService) List(ctx context.Context, userID string) []model.Conversation {
	s.mu.RLock()
	convs := make([]model.Conversation, 0)
	for _, conv := range s.conversations {
		if isParticipant(conv, userID) {
			convs = append(convs, *cloneConversation(conv))
		}
	}
	s.mu.RUnlock()

	for i := range convs {
		if other, err := s.users.Get(ctx, convs[i].OtherParticipant(userID)); err == nil {
			convs[i].OtherUser = &other
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].CreatedAt.After(convs[j].CreatedAt) })
	return convs
}

// UpdateLastMessage records msg as the conversation's latest message.
func (s *ConversationService) UpdateLastMessage(_ context.Context, conversationID string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[conversationID]; ok {
		conv.LastMessage = &msg
	}
}

func isParticipant(conv *model.Conversation, userID string) bool {
	for _, p := range conv.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func cloneConversation(conv *model.Conversation) *model.Conversation {
	out := *conv
	out.Participants = append([]string(nil), conv.Participants...)
	if conv.LastMessage != nil {
		last := *conv.LastMessage
		out.LastMessage = &last
	}
	return &out
}
