package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/metrics"
	"github.com/becayis/chatcore/pkg/tracing"
)

// Broadcaster pushes a frame to every live socket of the given users.
type Broadcaster interface {
	Broadcast(userIDs []string, frame model.Frame)
}

// MessageService handles message operations.
type MessageService struct {
	conversations *ConversationService
	users         *UserService
	notifications *NotificationService
	broadcaster   Broadcaster
	logger        *logger.Logger

	mu       sync.RWMutex
	messages map[string][]*model.Message
}

// NewMessageService creates a new message service. broadcaster may be nil.
func NewMessageService(
	conversations *ConversationService,
	users *UserService,
	notifications *NotificationService,
	broadcaster Broadcaster,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		users:         users,
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger.OrNop(log).Named("messages"),
		messages:      make(map[string][]*model.Message),
	}
}

// Send stores a message from senderID, notifies the recipient and pushes
// a new_message frame to both participants. via is "rest" or "ws".
func (s *MessageService) Send(ctx context.Context, senderID string, req model.SendMessageRequest, via string) (_ *model.Message, err error) {
	ctx, span := tracing.Tracer("github.com/becayis/chatcore/internal/service").Start(ctx, "MessageService.Send",
		trace.WithAttributes(
			attribute.String("conversation_id", req.ConversationID),
			attribute.String("via", via),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	conv, err := s.conversations.Get(ctx, senderID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	recipient := conv.OtherParticipant(senderID)
	if s.users.Blocked(recipient, senderID) {
		return nil, forbidden("Bu kullanıcıya mesaj gönderemezsiniz")
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        req.Content,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages[conv.ID] = append(s.messages[conv.ID], msg)
	out := *msg
	s.mu.Unlock()

	s.conversations.UpdateLastMessage(ctx, conv.ID, out)
	s.notifications.Create(ctx, recipient, "Yeni Mesaj", "Size yeni bir mesaj geldi", model.NotificationMessage)
	metrics.MessagesTotal.WithLabelValues(via).Inc()

	if s.broadcaster != nil {
		frame, err := model.NewMessageFrame(out)
		if err != nil {
			s.logger.Error("failed to build new_message frame", zap.Error(err))
		} else {
			s.broadcaster.Broadcast(conv.Participants, frame)
		}
	}
	return &out, nil
}

// History returns all messages of a conversation in creation order plus
// both participants' profiles.
func (s *MessageService) History(ctx context.Context, userID, conversationID string) (*model.ConversationHistory, error) {
	conv, err := s.conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	stored := s.messages[conv.ID]
	msgs := make([]model.Message, len(stored))
	for i, m := range stored {
		msgs[i] = *m
	}
	s.mu.RUnlock()

	participants := make([]model.Participant, 0, len(conv.Participants))
	for _, id := range conv.Participants {
		p, err := s.users.Get(ctx, id)
		if err != nil {
			p = model.Participant{UserID: id}
		}
		participants = append(participants, p)
	}

	return &model.ConversationHistory{Messages: msgs, Participants: participants}, nil
}

// MarkRead flags every message in the conversation that readerID
// received. It returns how many changed.
func (s *MessageService) MarkRead(ctx context.Context, readerID, conversationID string) (int, error) {
	conv, err := s.conversations.Get(ctx, readerID, conversationID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	changed := 0
	var last *model.Message
	for _, m := range s.messages[conv.ID] {
		if m.SenderID != readerID && !m.Read {
			m.Read = true
			changed++
		}
		last = m
	}
	var lastCopy model.Message
	if last != nil {
		lastCopy = *last
	}
	s.mu.Unlock()

	if changed > 0 {
		s.conversations.UpdateLastMessage(ctx, conv.ID, lastCopy)
	}
	return changed, nil
}

// Participants returns the member ids of a conversation userID belongs to.
func (s *MessageService) Participants(ctx context.Context, userID, conversationID string) ([]string, error) {
	conv, err := s.conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return conv.Participants, nil
}
