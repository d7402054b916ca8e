// Package main is the entry point for the stand-in chat backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/config"
	"github.com/becayis/chatcore/internal/handler"
	"github.com/becayis/chatcore/internal/middleware"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/service"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat backend")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "becayis-chatd", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Initialize services
	hub := handler.NewHub(log)
	userSvc := service.NewUserService()
	notificationSvc := service.NewNotificationService()
	conversationSvc := service.NewConversationService(userSvc, log)
	invitationSvc := service.NewInvitationService(conversationSvc, notificationSvc)
	messageSvc := service.NewMessageService(conversationSvc, userSvc, notificationSvc, hub, log)

	if cfg.SeedDemo {
		if err := seedDemo(ctx, cfg, log, userSvc, invitationSvc); err != nil {
			log.Error("failed to seed demo data", zap.Error(err))
			os.Exit(1)
		}
	}

	r := handler.NewRouter(handler.Deps{
		Users:             userSvc,
		Conversations:     conversationSvc,
		Messages:          messageSvc,
		Invitations:       invitationSvc,
		Notifications:     notificationSvc,
		Hub:               hub,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AllowedOrigins:    cfg.AllowedOrigins,
		Extra:             map[string]http.Handler{"/metrics": promhttp.Handler()},
		Logger:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// seedDemo creates two users with an accepted invitation between them and
// logs a session token for each.
func seedDemo(ctx context.Context, cfg *config.Config, log *logger.Logger, users *service.UserService, invitations *service.InvitationService) error {
	ayse := users.Add(ctx, model.Participant{UserID: "ayse", DisplayName: "Ayşe Yılmaz", Institution: "Milli Eğitim Bakanlığı", Role: "Öğretmen"})
	mehmet := users.Add(ctx, model.Participant{UserID: "mehmet", DisplayName: "Mehmet Demir", Institution: "Sağlık Bakanlığı", Role: "Hemşire"})

	inv, err := invitations.Create(ctx, ayse.UserID, mehmet.UserID, "demo-listing")
	if err != nil {
		return err
	}
	resp, err := invitations.Respond(ctx, mehmet.UserID, model.RespondInvitationRequest{InvitationID: inv.ID, Action: model.ActionAccept})
	if err != nil {
		return err
	}

	for _, p := range []model.Participant{ayse, mehmet} {
		token, err := middleware.IssueToken(cfg.JWTSecret, p.UserID, cfg.JWTExpiration)
		if err != nil {
			return err
		}
		log.Info("demo session",
			zap.String("user_id", p.UserID),
			zap.String("conversation_id", resp.ConversationID),
			zap.String("token", token),
		)
	}
	return nil
}
