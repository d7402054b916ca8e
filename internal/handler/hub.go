package handler

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/metrics"
)

const clientSendBuffer = 32

// liveClient is one accepted socket. send is drained by the socket's
// writer goroutine.
type liveClient struct {
	userID string
	send   chan []byte
}

// Hub tracks live sockets per user and fans frames out to them. A user
// may hold several sockets, one per open conversation view.
type Hub struct {
	logger *logger.Logger

	mu      sync.RWMutex
	clients map[string]map[*liveClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:  logger.OrNop(log).Named("hub"),
		clients: make(map[string]map[*liveClient]struct{}),
	}
}

func (h *Hub) register(userID string) *liveClient {
	c := &liveClient{userID: userID, send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*liveClient]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.IncrementWSConnections()
	return c
}

func (h *Hub) unregister(c *liveClient) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	metrics.DecrementWSConnections()
}

// Broadcast queues frame on every socket of userIDs. Sockets whose buffer
// is full miss the frame.
func (h *Hub) Broadcast(userIDs []string, frame model.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to encode frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		for c := range h.clients[userID] {
			h.enqueue(c, data, frame.Type)
		}
	}
}

// Count returns the number of open sockets.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) sendTo(c *liveClient, frame model.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to encode frame", zap.Error(err))
		return
	}
	h.enqueue(c, data, frame.Type)
}

func (h *Hub) enqueue(c *liveClient, data []byte, typ model.FrameType) {
	select {
	case c.send <- data:
		metrics.RecordFrame("out", string(typ))
	default:
		h.logger.Warn("slow live client, frame dropped",
			zap.String("user_id", c.userID),
			zap.String("type", string(typ)),
		)
	}
}
