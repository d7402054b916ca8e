package chat

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/transport"
	"github.com/becayis/chatcore/pkg/logger"
)

// HistoryFetcher loads a conversation from the REST source of truth.
type HistoryFetcher interface {
	ConversationHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error)
}

// Link is the live channel as seen by the chat core.
type Link interface {
	State() transport.State
	Send(ctx context.Context, frame model.Frame) error
}

// Store is the ordered message log of the active conversation. Messages
// are keyed by id; a message id appears at most once.
type Store struct {
	fetcher HistoryFetcher
	link    Link
	logger  *logger.Logger

	mu             sync.Mutex
	conversationID string
	messages       []model.Message
	ids            map[string]struct{}
	participants   []model.Participant
	loadSeq        uint64
	loading        bool
	// live appends seen while a load is in flight, re-applied after it.
	pending   []model.Message
	observers []func()
}

// NewStore creates an empty store for conversationID.
func NewStore(conversationID string, fetcher HistoryFetcher, link Link, log *logger.Logger) *Store {
	return &Store{
		fetcher:        fetcher,
		link:           link,
		logger:         logger.OrNop(log).Named("store"),
		conversationID: conversationID,
		ids:            make(map[string]struct{}),
	}
}

// ConversationID returns the active conversation.
func (s *Store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// LoadHistory replaces the sequence with the server's view of
// conversationID. On failure the current sequence is kept and a
// *FetchError is returned.
func (s *Store) LoadHistory(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.Lock()
	if s.conversationID != conversationID {
		s.conversationID = conversationID
		s.messages = nil
		s.ids = make(map[string]struct{})
		s.participants = nil
	}
	s.loadSeq++
	seq := s.loadSeq
	s.loading = true
	s.pending = nil
	s.mu.Unlock()

	history, err := s.fetcher.ConversationHistory(ctx, conversationID)

	s.mu.Lock()
	if seq != s.loadSeq {
		// a newer load owns the sequence now
		s.mu.Unlock()
		if err != nil {
			return nil, &FetchError{ConversationID: conversationID, Err: err}
		}
		return s.Messages(), nil
	}
	s.loading = false
	pending := s.pending
	s.pending = nil
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("history load failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, &FetchError{ConversationID: conversationID, Err: err}
	}

	s.messages = make([]model.Message, 0, len(history.Messages)+len(pending))
	s.ids = make(map[string]struct{}, len(history.Messages)+len(pending))
	for _, msg := range history.Messages {
		s.insertLocked(msg)
	}
	for _, msg := range pending {
		s.insertLocked(msg)
	}
	s.participants = history.Participants
	out := s.snapshotLocked()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// Append adds msg at the tail. Messages for another conversation and ids
// already present are dropped; the result reports whether msg was added.
func (s *Store) Append(msg model.Message) bool {
	s.mu.Lock()
	if msg.ConversationID != s.conversationID {
		s.mu.Unlock()
		s.logger.Debug("ignoring message for inactive conversation",
			zap.String("conversation_id", msg.ConversationID))
		return false
	}
	if s.loading {
		s.pending = append(s.pending, msg)
	}
	added := s.insertLocked(msg)
	s.mu.Unlock()

	if added {
		s.notify()
	}
	return added
}

// MarkRead tells the server that incoming messages were displayed. It is
// a no-op unless the live channel is connected.
func (s *Store) MarkRead(ctx context.Context) {
	if s.link == nil || s.link.State() != transport.StateConnected {
		return
	}
	err := s.link.Send(ctx, model.ReadFrame(s.ConversationID()))
	if err != nil && !errors.Is(err, transport.ErrNotConnected) {
		s.logger.Debug("read acknowledgment not sent", zap.Error(err))
	}
}

// Messages returns a copy of the sequence.
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Participants returns the participants recorded by the last load.
func (s *Store) Participants() []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Participant(nil), s.participants...)
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// OnChange registers fn to run after every change of the sequence.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Store) insertLocked(msg model.Message) bool {
	if msg.ID != "" {
		if _, ok := s.ids[msg.ID]; ok {
			return false
		}
		s.ids[msg.ID] = struct{}{}
	}
	s.messages = append(s.messages, msg)
	return true
}

func (s *Store) snapshotLocked() []model.Message {
	return append([]model.Message(nil), s.messages...)
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := append([]func(){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
