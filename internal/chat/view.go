package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/api"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/transport"
	"github.com/becayis/chatcore/pkg/logger"
)

const noticeBuffer = 16

// NoticeKind classifies user-visible notices.
type NoticeKind string

const (
	NoticeServerError NoticeKind = "server_error"
	NoticeSendFailed  NoticeKind = "send_failed"
	NoticeFetchFailed NoticeKind = "fetch_failed"
)

// Notice is a message for the user that does not change conversation
// state.
type Notice struct {
	Kind NoticeKind
	Text string
	Err  error
}

// API is the REST surface a view needs.
type API interface {
	HistoryFetcher
	MessageSender
}

// ViewConfig configures a View.
type ViewConfig struct {
	ConversationID string
	// SelfID is the viewer's user id; their own echoes are not
	// acknowledged with a read frame.
	SelfID string
	API    API
	// Endpoint is the live channel URL, see transport.Endpoint.
	Endpoint     string
	Dialer       transport.Dialer
	Policy       backoff.BackOff
	DialTimeout  time.Duration
	TypingWindow time.Duration
	Clock        clock.Clock
	Logger       *logger.Logger
}

// View owns the live channel, store, typing tracker and router of one
// open conversation, plus the draft being composed.
type View struct {
	conversationID string
	selfID         string
	logger         *logger.Logger

	client  *transport.Client
	store   *Store
	tracker *Tracker
	router  *Router

	unsubscribe func()
	// ctx bounds work started by the view itself; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	draft   string
	closed  bool
	notices chan Notice
}

// NewView wires the core for one conversation. Nothing connects until
// Mount.
func NewView(cfg ViewConfig) (*View, error) {
	if cfg.ConversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("API client is required")
	}

	log := logger.OrNop(cfg.Logger).ForConversation(cfg.ConversationID, cfg.SelfID)
	v := &View{
		conversationID: cfg.ConversationID,
		selfID:         cfg.SelfID,
		logger:         log.Named("view"),
		notices:        make(chan Notice, noticeBuffer),
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())

	client, err := transport.New(transport.Config{
		Endpoint:    cfg.Endpoint,
		Dialer:      cfg.Dialer,
		Policy:      cfg.Policy,
		Clock:       cfg.Clock,
		DialTimeout: cfg.DialTimeout,
		OnFrame:     v.dispatch,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create live channel: %w", err)
	}
	v.client = client
	v.store = NewStore(cfg.ConversationID, cfg.API, client, log)
	v.router = NewRouter(client, cfg.API, v.store, log)
	v.tracker = NewTracker(TrackerConfig{
		ConversationID: cfg.ConversationID,
		Window:         cfg.TypingWindow,
		Clock:          cfg.Clock,
		Emit: func() error {
			return client.Send(context.Background(), model.TypingFrame(cfg.ConversationID))
		},
	})
	v.unsubscribe = client.Subscribe(func(s transport.State) {
		if s == transport.StateConnected {
			v.reconcile()
		}
	})
	return v, nil
}

// Mount loads the history and then opens the live channel. A load
// failure is returned and also posted as a notice; the caller is expected
// to leave the conversation.
func (v *View) Mount(ctx context.Context) error {
	if _, err := v.store.LoadHistory(ctx, v.conversationID); err != nil {
		v.notify(Notice{Kind: NoticeFetchFailed, Text: "Mesajlar yüklenemedi", Err: err})
		return err
	}
	v.client.Open()
	v.logger.Debug("conversation mounted", zap.Int("messages", v.store.Len()))
	return nil
}

// SetDraft replaces the draft. A non-empty draft counts as a keystroke.
func (v *View) SetDraft(text string) {
	v.mu.Lock()
	v.draft = text
	v.mu.Unlock()
	if text != "" {
		v.tracker.Keystroke()
	}
}

// Draft returns the current draft.
func (v *View) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Submit sends the draft. The draft is cleared on success and kept on
// failure.
func (v *View) Submit(ctx context.Context) (Path, error) {
	draft := v.Draft()
	path, err := v.router.Send(ctx, v.conversationID, draft)
	if err != nil {
		if !errors.Is(err, ErrEmptyMessage) {
			v.notify(Notice{Kind: NoticeSendFailed, Text: sendFailureText(err), Err: err})
		}
		return path, err
	}

	v.mu.Lock()
	if v.draft == draft {
		v.draft = ""
	}
	v.mu.Unlock()
	return path, nil
}

// Notices delivers user-visible notices. The channel is closed by Close.
func (v *View) Notices() <-chan Notice {
	return v.notices
}

// Messages returns the current message sequence.
func (v *View) Messages() []model.Message { return v.store.Messages() }

// Participants returns the conversation participants.
func (v *View) Participants() []model.Participant { return v.store.Participants() }

// Store exposes the message store for observers.
func (v *View) Store() *Store { return v.store }

// Tracker exposes the typing tracker for observers.
func (v *View) Tracker() *Tracker { return v.tracker }

// ConnectionState returns the live channel state.
func (v *View) ConnectionState() transport.State { return v.client.State() }

// OnConnectionChange registers fn for live channel state changes.
func (v *View) OnConnectionChange(fn func(transport.State)) func() {
	return v.client.Subscribe(fn)
}

// Close tears the conversation down: socket, retry timer and typing
// timers. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	close(v.notices)
	v.mu.Unlock()

	v.cancel()
	v.unsubscribe()
	v.client.Close()
	v.tracker.Stop()
	v.logger.Debug("conversation closed")
}

// reconcile runs on every connect, before the first frame is read.
// Messages pushed while the channel was down only exist in the REST
// history, so it is re-read before acknowledging.
func (v *View) reconcile() {
	if _, err := v.store.LoadHistory(v.ctx, v.conversationID); err != nil && v.ctx.Err() == nil {
		v.logger.Warn("history refresh after connect failed", zap.Error(err))
	}
	v.store.MarkRead(v.ctx)
}

func (v *View) dispatch(frame model.Frame) {
	switch frame.Type {
	case model.FrameNewMessage:
		msg, err := frame.ChatMessage()
		if err != nil {
			v.logger.Debug("malformed new_message frame", zap.Error(err))
			return
		}
		if !v.store.Append(*msg) {
			return
		}
		if msg.SenderID != v.selfID {
			v.store.MarkRead(context.Background())
		}
	case model.FrameTyping:
		v.tracker.Observe(frame.ConversationID)
	case model.FrameError:
		v.notify(Notice{Kind: NoticeServerError, Text: frame.ErrorText()})
	default:
		v.logger.Debug("ignoring frame", zap.String("type", string(frame.Type)))
	}
}

func (v *View) notify(n Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	select {
	case v.notices <- n:
	default:
		v.logger.Warn("notice dropped", zap.String("kind", string(n.Kind)), zap.String("text", n.Text))
	}
}

func sendFailureText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return "Mesaj gönderilemedi"
}
