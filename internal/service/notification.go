package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/becayis/chatcore/internal/model"
)

const notificationListLimit = 50

// NotificationService stores per-user notifications.
type NotificationService struct {
	mu    sync.RWMutex
	items map[string]*model.Notification
}

// NewNotificationService creates an empty notification service.
func NewNotificationService() *NotificationService {
	return &NotificationService{items: make(map[string]*model.Notification)}
}

// Create adds an unread notification for userID.
func (s *NotificationService) Create(_ context.Context, userID, title, message, typ string) *model.Notification {
	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.items[n.ID] = n
	s.mu.Unlock()
	return n
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(_ context.Context, userID string) []model.Notification {
	s.mu.RLock()
	out := make([]model.Notification, 0)
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > notificationListLimit {
		out = out[:notificationListLimit]
	}
	return out
}

// MarkRead marks one of userID's notifications read. Unknown ids are
// ignored.
func (s *NotificationService) MarkRead(_ context.Context, userID, notificationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.items[notificationID]; ok && n.UserID == userID {
		n.Read = true
	}
}
