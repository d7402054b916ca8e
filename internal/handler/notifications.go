package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/service"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, h.notifications.List(ctx, middleware.GetUserID(ctx)))
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.notifications.MarkRead(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Bildirim okundu olarak işaretlendi",
	})
}
