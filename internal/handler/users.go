package handler

import (
	"net/http"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/service"
)

// UserHandler handles block requests.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{users: svc}
}

// Block handles POST /api/block
func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.BlockUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Geçersiz istek gövdesi")
		return
	}
	if !h.users.Exists(req.BlockedUserID) {
		writeError(w, http.StatusNotFound, "Kullanıcı bulunamadı")
		return
	}

	if err := h.users.Block(ctx, middleware.GetUserID(ctx), req.BlockedUserID); err != nil {
		writeServiceError(w, err, "Kullanıcı engellenemedi")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Kullanıcı engellendi",
	})
}
