package handler

import (
	"net/http"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/service"
)

// InvitationHandler handles invitation endpoints.
type InvitationHandler struct {
	invitations *service.InvitationService
}

// NewInvitationHandler creates a new invitation handler.
func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: svc}
}

// List handles GET /api/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, h.invitations.List(ctx, middleware.GetUserID(ctx)))
}

// Respond handles POST /api/invitations/respond
func (h *InvitationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.RespondInvitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Geçersiz istek gövdesi")
		return
	}

	resp, err := h.invitations.Respond(ctx, middleware.GetUserID(ctx), req)
	if err != nil {
		writeServiceError(w, err, "Davet yanıtlanamadı")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
