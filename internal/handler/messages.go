package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/service"
	"github.com/becayis/chatcore/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messages *service.MessageService
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(msgSvc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messages: msgSvc,
		logger:   logger.OrNop(log),
	}
}

// Send handles POST /api/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Geçersiz istek gövdesi")
		return
	}

	if err := middleware.ValidateID(req.ConversationID); err != nil {
		writeError(w, http.StatusNotFound, "Konuşma bulunamadı")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.messages.Send(ctx, userID, req, "rest")
	if err != nil {
		h.logger.Debug("message rejected", zap.String("conversation_id", req.ConversationID), zap.Error(err))
		writeServiceError(w, err, "Mesaj gönderilemedi")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}
