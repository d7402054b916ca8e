package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/service"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/metrics"
)

const (
	liveReadLimit    = 1 << 20
	liveWriteTimeout = 10 * time.Second
)

// LiveHandler serves the live channel: GET /api/ws/{token}.
type LiveHandler struct {
	hub         *Hub
	messages    *service.MessageService
	users       *service.UserService
	jwtSecret   string
	originHosts []string
	logger      *logger.Logger
}

// NewLiveHandler creates a new live channel handler. originHosts is the
// browser origin allow-list shared with CORS.
func NewLiveHandler(hub *Hub, msgSvc *service.MessageService, users *service.UserService, jwtSecret string, originHosts []string, log *logger.Logger) *LiveHandler {
	return &LiveHandler{
		hub:         hub,
		messages:    msgSvc,
		users:       users,
		jwtSecret:   jwtSecret,
		originHosts: middleware.OriginHosts(originHosts),
		logger:      logger.OrNop(log).Named("live"),
	}
}

// Serve authenticates the path token, upgrades, and runs the socket until
// either side closes it.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ParseToken(h.jwtSecret, chi.URLParam(r, "token"))
	if err != nil || !h.users.Exists(userID) {
		writeError(w, http.StatusUnauthorized, "Token geçersiz")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originHosts,
	})
	if err != nil {
		h.logger.Warn("live channel upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(liveReadLimit)

	client := h.hub.register(userID)
	defer h.hub.unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := h.logger.With(zap.String("user_id", userID))
	log.Info("live client connected")

	go h.writeLoop(ctx, cancel, conn, client)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debug("live read ended", zap.Error(err))
			}
			break
		}

		frame, err := model.DecodeFrame(data)
		if err != nil {
			h.hub.sendTo(client, model.ErrorFrame("Geçersiz mesaj biçimi"))
			continue
		}
		metrics.RecordFrame("in", string(frame.Type))
		h.handleFrame(ctx, client, frame)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	log.Info("live client disconnected")
}

func (h *LiveHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, client *liveClient) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-client.send:
			wctx, wcancel := context.WithTimeout(ctx, liveWriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				h.logger.Debug("live write failed", zap.String("user_id", client.userID), zap.Error(err))
				return
			}
		}
	}
}

func (h *LiveHandler) handleFrame(ctx context.Context, client *liveClient, frame model.Frame) {
	switch frame.Type {
	case model.FrameMessage:
		if err := middleware.ValidateMessageContent(frame.Content); err != nil {
			h.hub.sendTo(client, model.ErrorFrame(err.Error()))
			return
		}
		req := model.SendMessageRequest{ConversationID: frame.ConversationID, Content: frame.Content}
		if _, err := h.messages.Send(ctx, client.userID, req, "ws"); err != nil {
			h.hub.sendTo(client, model.ErrorFrame(service.Detail(err, "Mesaj gönderilemedi")))
		}

	case model.FrameTyping:
		participants, err := h.messages.Participants(ctx, client.userID, frame.ConversationID)
		if err != nil {
			return
		}
		others := make([]string, 0, 1)
		for _, p := range participants {
			if p != client.userID {
				others = append(others, p)
			}
		}
		h.hub.Broadcast(others, model.TypingFrame(frame.ConversationID))

	case model.FrameRead:
		if _, err := h.messages.MarkRead(ctx, client.userID, frame.ConversationID); err != nil {
			h.logger.Debug("read frame rejected", zap.Error(err))
		}

	default:
		h.logger.Debug("ignoring frame", zap.String("type", string(frame.Type)))
	}
}
