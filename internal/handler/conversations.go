package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/service"
	"github.com/becayis/chatcore/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(convSvc *service.ConversationService, msgSvc *service.MessageService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: convSvc,
		messages:      msgSvc,
		logger:        logger.OrNop(log),
	}
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	writeJSON(w, http.StatusOK, h.conversations.List(ctx, userID))
}

// History handles GET /api/conversations/{id}/messages
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusNotFound, "Konuşma bulunamadı")
		return
	}

	history, err := h.messages.History(ctx, userID, conversationID)
	if err != nil {
		h.logger.Debug("history rejected", zap.String("conversation_id", conversationID), zap.Error(err))
		writeServiceError(w, err, "Mesajlar yüklenemedi")
		return
	}

	writeJSON(w, http.StatusOK, history)
}
