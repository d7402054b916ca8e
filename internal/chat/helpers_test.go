package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/transport"
)

// fakeAPI serves history from memory and records sends.
type fakeAPI struct {
	mu         sync.Mutex
	history    map[string][]model.Message
	historyErr error
	sendErr    error
	fetches    int
	sends      []model.SendMessageRequest
	// release, when set, blocks history fetches until closed.
	release chan struct{}
	started chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{history: make(map[string][]model.Message)}
}

func (f *fakeAPI) ConversationHistory(ctx context.Context, id string) (*model.ConversationHistory, error) {
	f.mu.Lock()
	f.fetches++
	release, started := f.release, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	msgs := append([]model.Message(nil), f.history[id]...)
	return &model.ConversationHistory{
		Messages:     msgs,
		Participants: []model.Participant{{UserID: "u1"}, {UserID: "u2"}},
	}, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, req model.SendMessageRequest) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	msg := model.Message{
		ID:             fmt.Sprintf("srv-%d", len(f.sends)),
		ConversationID: req.ConversationID,
		SenderID:       "u1",
		Content:        req.Content,
	}
	f.history[req.ConversationID] = append(f.history[req.ConversationID], msg)
	return &msg, nil
}

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeAPI) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

// fakeLink is a Link with a settable state.
type fakeLink struct {
	mu      sync.Mutex
	state   transport.State
	sendErr error
	sent    []model.Frame
}

func (l *fakeLink) State() transport.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *fakeLink) Send(_ context.Context, frame model.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, frame)
	return nil
}

func (l *fakeLink) frames() []model.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Frame(nil), l.sent...)
}

// fakeConn is an in-memory socket for view tests.
type fakeConn struct {
	inbound chan []byte
	done    chan struct{}

	mu      sync.Mutex
	written []model.Frame
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-c.inbound:
		return websocket.MessageText, data, nil
	case <-c.done:
		return 0, nil, errors.New("closed")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	var f model.Frame
	if err := json.Unmarshal(p, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, f)
	return nil
}

func (c *fakeConn) Close(websocket.StatusCode, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) push(f model.Frame) {
	data, _ := json.Marshal(f)
	c.inbound <- data
}

func (c *fakeConn) framesOf(typ model.FrameType) []model.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Frame
	for _, f := range c.written {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

type fakeDialer struct {
	mu   sync.Mutex
	conn *fakeConn
}

func (d *fakeDialer) Dial(context.Context, string) (transport.Conn, error) {
	conn := newFakeConn()
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) current() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn
}
