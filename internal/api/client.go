// Package api is the REST client for the Becayiş backend endpoints the
// communication core depends on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/session"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/tracing"
)

const maxResponseBytes = 4 << 20

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Detail     string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://becayis.example/api".
	BaseURL string
	// Session carries the bearer token attached to every request.
	Session session.Session
	// HTTPClient is used for all requests. If nil, a client with Timeout
	// is created.
	HTTPClient *http.Client
	Timeout    time.Duration
	// OnUnauthorized runs after a 401 response, e.g. to clear the stored
	// token.
	OnUnauthorized func()
	Logger         *logger.Logger
}

// Client is an authenticated REST client.
type Client struct {
	baseURL        string
	session        session.Session
	httpClient     *http.Client
	onUnauthorized func()
	logger         *logger.Logger
	tracer         trace.Tracer
}

// NewClient creates a REST client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		session:        cfg.Session,
		httpClient:     httpClient,
		onUnauthorized: cfg.OnUnauthorized,
		logger:         logger.OrNop(cfg.Logger).Named("api"),
		tracer:         tracing.Tracer("github.com/becayis/chatcore/internal/api"),
	}, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ConversationHistory fetches all messages and participants of a
// conversation.
func (c *Client) ConversationHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	var history model.ConversationHistory
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// SendMessage creates a message over REST.
func (c *Client) SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.Message, error) {
	var msg model.Message
	if err := c.do(ctx, http.MethodPost, "/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Notifications lists the caller's notifications.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(notificationID)+"/read", nil, nil)
}

// Invitations lists sent and received invitations.
func (c *Client) Invitations(ctx context.Context) (*model.InvitationList, error) {
	var out model.InvitationList
	if err := c.do(ctx, http.MethodGet, "/invitations", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RespondInvitation accepts or rejects a received invitation.
func (c *Client) RespondInvitation(ctx context.Context, req model.RespondInvitationRequest) (*model.RespondInvitationResponse, error) {
	var out model.RespondInvitationResponse
	if err := c.do(ctx, http.MethodPost, "/invitations/respond", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations lists the caller's conversations with their last message.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one request. On 2xx the body is decoded into out (when
// non-nil); otherwise an *Error is returned.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	correlationID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	tracing.Inject(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("correlation_id", correlationID),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		apiErr.StatusCode = resp.StatusCode
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
