package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/service"
	"github.com/becayis/chatcore/pkg/logger"
)

// Deps wires the stand-in server's services into a router.
type Deps struct {
	Users         *service.UserService
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Invitations   *service.InvitationService
	Notifications *service.NotificationService
	Hub           *Hub

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// AllowedOrigins are browser origin host patterns for CORS and the
	// live channel; empty means middleware.DefaultOriginHosts.
	AllowedOrigins []string

	// Extra mounts additional handlers on the root router, e.g. /metrics.
	Extra map[string]http.Handler

	Logger *logger.Logger
}

// NewRouter builds the HTTP surface the chat client talks to.
func NewRouter(d Deps) chi.Router {
	log := logger.OrNop(d.Logger)

	healthHandler := NewHealthHandler(d.Hub)
	conversationHandler := NewConversationHandler(d.Conversations, d.Messages, log)
	messageHandler := NewMessageHandler(d.Messages, log)
	notificationHandler := NewNotificationHandler(d.Notifications)
	invitationHandler := NewInvitationHandler(d.Invitations)
	userHandler := NewUserHandler(d.Users)
	liveHandler := NewLiveHandler(d.Hub, d.Messages, d.Users, d.JWTSecret, d.AllowedOrigins, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	for pattern, h := range d.Extra {
		r.Handle(pattern, h)
	}

	r.Route("/api", func(r chi.Router) {
		// The live channel authenticates with the token in its path.
		r.Get("/ws/{token}", liveHandler.Serve)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.JWTSecret, d.Users.Exists))
			if d.RateLimitRequests > 0 {
				r.Use(middleware.RateLimit(d.RateLimitRequests, d.RateLimitWindow))
			}

			r.Get("/conversations", conversationHandler.List)
			r.Get("/conversations/{id}/messages", conversationHandler.History)
			r.Post("/messages", messageHandler.Send)

			r.Get("/notifications", notificationHandler.List)
			r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

			r.Get("/invitations", invitationHandler.List)
			r.Post("/invitations/respond", invitationHandler.Respond)

			r.Post("/block", userHandler.Block)
		})
	})

	return r
}
