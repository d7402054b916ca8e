package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/becayis/chatcore/internal/model"
)

// UserService keeps profiles and block relations.
type UserService struct {
	mu     sync.RWMutex
	users  map[string]model.Participant
	blocks map[string]map[string]struct{}
}

// NewUserService creates an empty user service.
func NewUserService() *UserService {
	return &UserService{
		users:  make(map[string]model.Participant),
		blocks: make(map[string]map[string]struct{}),
	}
}

// Add registers a profile. An empty UserID gets a fresh one.
func (s *UserService) Add(_ context.Context, p model.Participant) model.Participant {
	if p.UserID == "" {
		p.UserID = uuid.NewString()
	}
	s.mu.Lock()
	s.users[p.UserID] = p
	s.mu.Unlock()
	return p
}

// Get returns a profile.
func (s *UserService) Get(_ context.Context, userID string) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.users[userID]
	if !ok {
		return model.Participant{}, notFound("Kullanıcı bulunamadı")
	}
	return p, nil
}

// Exists reports whether userID is registered.
func (s *UserService) Exists(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

// Block records that blocker no longer accepts messages from blocked.
func (s *UserService) Block(_ context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return invalid("Kendinizi engelleyemezsiniz")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.blocks[blockerID]
	if !ok {
		set = make(map[string]struct{})
		s.blocks[blockerID] = set
	}
	set[blockedID] = struct{}{}
	return nil
}

// Blocked reports whether blocker has blocked blocked.
func (s *UserService) Blocked(blockerID, blockedID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[blockerID][blockedID]
	return ok
}
