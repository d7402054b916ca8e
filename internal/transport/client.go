// Package transport owns the live duplex channel of one authenticated
// session: connection state machine, JSON framing and reconnection.
//
// A Client moves Disconnected → Connecting → Connected and back to
// Disconnected on any close or error, after which exactly one retry timer
// is armed. Close is terminal. Transport failures are logged and metered
// here and never returned to callers, except from Send.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/metrics"
)

const (
	defaultRetryDelay  = 3 * time.Second
	defaultDialTimeout = 10 * time.Second
	readLimit          = 1 << 20
)

var (
	// ErrNotConnected is returned by Send outside the Connected state.
	ErrNotConnected = errors.New("live channel not connected")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("live channel closed")
)

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a Conn to the live channel endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WebSocketDialer dials with coder/websocket.
type WebSocketDialer struct {
	HTTPClient *http.Client
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{ //nolint:bodyclose // websocket.Dial closes the response body
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// Config holds Client dependencies.
type Config struct {
	// Endpoint is the full live channel URL, see Endpoint.
	Endpoint string
	// Dialer defaults to WebSocketDialer.
	Dialer Dialer
	// Policy decides the delay before each retry. Defaults to a fixed 3s.
	Policy backoff.BackOff
	// Clock drives retry timers. Defaults to the real clock.
	Clock       clock.Clock
	DialTimeout time.Duration
	// OnFrame receives every decoded inbound frame, on the reader
	// goroutine.
	OnFrame func(model.Frame)
	Logger  *logger.Logger
}

// Client is one live channel. It is owned by a single view and never
// shared.
type Client struct {
	endpoint    string
	dialer      Dialer
	policy      backoff.BackOff
	clock       clock.Clock
	dialTimeout time.Duration
	onFrame     func(model.Frame)
	logger      *logger.Logger

	mu            sync.Mutex
	state         State
	gen           uint64
	conn          Conn
	cancel        context.CancelFunc
	retry         *clock.Timer
	retryDeadline time.Time
	observers     map[int]func(State)
	nextObserver  int
}

// New creates a Client in the Disconnected state.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("transport: endpoint is required")
	}
	c := &Client{
		endpoint:    cfg.Endpoint,
		dialer:      cfg.Dialer,
		policy:      cfg.Policy,
		clock:       cfg.Clock,
		dialTimeout: cfg.DialTimeout,
		onFrame:     cfg.OnFrame,
		logger:      logger.OrNop(cfg.Logger).Named("transport"),
		observers:   make(map[int]func(State)),
	}
	if c.dialer == nil {
		c.dialer = WebSocketDialer{}
	}
	if c.policy == nil {
		c.policy = FixedPolicy(defaultRetryDelay)
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.dialTimeout <= 0 {
		c.dialTimeout = defaultDialTimeout
	}
	return c, nil
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RetryDeadline returns when the pending retry fires, if one is armed.
func (c *Client) RetryDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retry == nil {
		return time.Time{}, false
	}
	return c.retryDeadline, true
}

// Subscribe registers fn for state changes and returns a function that
// removes it. fn runs outside the client's lock and may call back into
// the client.
func (c *Client) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Open starts connecting. It only acts in the Disconnected state; a
// pending retry is replaced by an immediate attempt.
func (c *Client) Open() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.stopRetryLocked()
	ctx, gen := c.beginConnectLocked()
	c.mu.Unlock()

	c.emit(StateConnecting)
	go c.run(ctx, gen)
}

// Close tears the channel down for good. A pending retry is cancelled
// and no later transition happens.
func (c *Client) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.gen++
	c.stopRetryLocked()
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	metrics.ConnectionState.Set(float64(StateClosed))
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "teardown")
	}
	c.logger.Debug("live channel closed")
	c.emit(StateClosed)
}

// Send writes one frame. It is fire-and-forget: a nil error means the
// frame was handed to the socket, not that the server processed it.
func (c *Client) Send(ctx context.Context, frame model.Frame) error {
	c.mu.Lock()
	state, conn := c.state, c.conn
	c.mu.Unlock()

	switch {
	case state == StateClosed:
		return ErrClosed
	case state != StateConnected || conn == nil:
		return ErrNotConnected
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	metrics.RecordFrame("out", string(frame.Type))
	return nil
}

// beginConnectLocked enters Connecting and returns the attempt context.
func (c *Client) beginConnectLocked() (context.Context, uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	c.state = StateConnecting
	c.gen++
	c.cancel = cancel
	metrics.ConnectionState.Set(float64(StateConnecting))
	return ctx, c.gen
}

func (c *Client) run(ctx context.Context, gen uint64) {
	dialCtx, dialCancel := context.WithTimeout(ctx, c.dialTimeout)
	conn, err := c.dialer.Dial(dialCtx, c.endpoint)
	dialCancel()

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		}
		return
	}
	if err != nil {
		cancel := c.cancel
		c.cancel = nil
		c.state = StateDisconnected
		delay := c.scheduleRetryLocked(gen)
		c.mu.Unlock()

		cancel()
		c.logger.Warn("live channel dial failed", zap.Error(err), zap.Duration("retry_in", delay))
		c.emit(StateDisconnected)
		return
	}
	c.state = StateConnected
	c.conn = conn
	c.policy.Reset()
	metrics.ConnectionState.Set(float64(StateConnected))
	c.mu.Unlock()

	c.logger.Info("live channel connected")
	c.emit(StateConnected)
	c.readLoop(ctx, gen, conn)
}

func (c *Client) readLoop(ctx context.Context, gen uint64, conn Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.dropped(gen, err)
			return
		}

		frame, err := model.DecodeFrame(data)
		if err != nil {
			c.logger.Debug("dropping undecodable frame", zap.Error(err))
			continue
		}
		metrics.RecordFrame("in", string(frame.Type))
		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}
}

// dropped handles the end of a connected socket.
func (c *Client) dropped(gen uint64, cause error) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	c.state = StateDisconnected
	delay := c.scheduleRetryLocked(gen)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = conn.Close(websocket.StatusGoingAway, "dropped")
	c.logger.Warn("live channel lost", zap.Error(cause), zap.Duration("retry_in", delay))
	c.emit(StateDisconnected)
}

// scheduleRetryLocked arms the single retry timer.
func (c *Client) scheduleRetryLocked(gen uint64) time.Duration {
	if c.retry != nil {
		return c.retryDeadline.Sub(c.clock.Now())
	}
	delay := c.policy.NextBackOff()
	if delay == backoff.Stop {
		delay = defaultRetryDelay
	}
	metrics.ConnectionState.Set(float64(StateDisconnected))
	metrics.ReconnectAttempts.Inc()
	metrics.ReconnectDelay.Observe(delay.Seconds())

	c.retryDeadline = c.clock.Now().Add(delay)
	c.retry = c.clock.AfterFunc(delay, func() { c.fireRetry(gen) })
	return delay
}

func (c *Client) fireRetry(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	ctx, next := c.beginConnectLocked()
	c.mu.Unlock()

	c.logger.Debug("reconnecting")
	c.emit(StateConnecting)
	go c.run(ctx, next)
}

func (c *Client) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Client) emit(state State) {
	c.mu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
