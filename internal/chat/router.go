package chat

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/transport"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/metrics"
)

// Path is the route an outgoing message took.
type Path string

const (
	PathLive Path = "live"
	PathREST Path = "rest"
)

// MessageSender creates a message over REST.
type MessageSender interface {
	SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.Message, error)
}

// Router is the only writer of outgoing messages. It uses the live
// channel when connected and the REST endpoint otherwise.
type Router struct {
	link   Link
	sender MessageSender
	store  *Store
	logger *logger.Logger
}

// NewRouter creates a Router. store receives REST-path results.
func NewRouter(link Link, sender MessageSender, store *Store, log *logger.Logger) *Router {
	return &Router{
		link:   link,
		sender: sender,
		store:  store,
		logger: logger.OrNop(log).Named("router"),
	}
}

// Send delivers content to conversationID. On the live path the message
// shows up later as a new_message echo; on the REST path it is appended
// right away and the history re-fetched.
func (r *Router) Send(ctx context.Context, conversationID, content string) (Path, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyMessage
	}

	if r.link != nil && r.link.State() == transport.StateConnected {
		err := r.link.Send(ctx, model.OutgoingMessageFrame(conversationID, content))
		switch {
		case err == nil:
			metrics.RecordSend(string(PathLive), nil)
			return PathLive, nil
		case errors.Is(err, transport.ErrNotConnected), errors.Is(err, transport.ErrClosed):
			r.logger.Debug("live channel dropped at send time, using REST")
		default:
			metrics.RecordSend(string(PathLive), err)
			return PathLive, &SendError{Path: PathLive, Err: err}
		}
	}

	msg, err := r.sender.SendMessage(ctx, model.SendMessageRequest{
		ConversationID: conversationID,
		Content:        content,
	})
	metrics.RecordSend(string(PathREST), err)
	if err != nil {
		r.logger.Warn("message send failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return PathREST, &SendError{Path: PathREST, Err: err}
	}

	// a send to another conversation must not switch the store over
	if r.store != nil && r.store.ConversationID() == conversationID {
		r.store.Append(*msg)
		if _, err := r.store.LoadHistory(ctx, conversationID); err != nil {
			r.logger.Debug("refetch after send failed", zap.Error(err))
		}
	}
	return PathREST, nil
}
