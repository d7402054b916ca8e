// Package main is the terminal client for Becayiş conversations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/api"
	"github.com/becayis/chatcore/internal/config"
	"github.com/becayis/chatcore/internal/session"
	"github.com/becayis/chatcore/internal/transport"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/tracing"
)

var version = "dev"

func main() {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Becayiş conversations in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	cmd.AddCommand(newLoginCmd(), newLogoutCmd(), newOpenCmd(), newUnreadCmd())
	return cmd
}

// env is what every subcommand shares: configuration, logger and the
// persisted session.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *session.Store
	session session.Session
	// tp is set when tracing is enabled.
	tp *sdktrace.TracerProvider
}

// tracingFlushTimeout bounds the span flush on exit.
const tracingFlushTimeout = 5 * time.Second

func loadEnv(requireSession bool) (*env, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := session.Open(cfg.SessionFile)
	if err != nil {
		return nil, err
	}
	sess, err := store.Session()
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}
	if requireSession && !sess.Active() {
		return nil, errors.New("oturum bulunamadı, önce `chat login` çalıştırın")
	}

	e := &env{cfg: cfg, log: log, store: store, session: sess}
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(context.Background(), "becayis-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			e.tp = tp
		}
	}
	return e, nil
}

// close flushes pending spans and log entries.
func (e *env) close() {
	if e.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
		defer cancel()
		if err := tracing.Shutdown(ctx, e.tp); err != nil {
			e.log.Debug("tracing shutdown failed", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}

func (e *env) apiClient() (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL: e.cfg.APIBaseURL,
		Session: e.session,
		Timeout: e.cfg.HTTPTimeout,
		OnUnauthorized: func() {
			e.log.Warn("session rejected, clearing stored token")
			_ = e.store.Clear()
		},
		Logger: e.log,
	})
}

// newPolicy picks the live channel retry schedule.
func newPolicy(cfg *config.Config) backoff.BackOff {
	if cfg.ReconnectPolicy == config.ReconnectFixed {
		return transport.FixedPolicy(cfg.ReconnectDelay)
	}
	return transport.BackoffPolicy(cfg.ReconnectDelay, cfg.ReconnectMaxDelay)
}

func newLoginCmd() *cobra.Command {
	var token, userID string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.store.Save(session.Session{Token: token, UserID: userID}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s olarak oturum açıldı\n", userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token issued by the backend")
	cmd.Flags().StringVar(&userID, "user", "", "user id the token belongs to")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			return e.store.Clear()
		},
	}
}
