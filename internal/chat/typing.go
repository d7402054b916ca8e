package chat

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTypingWindow is both the sender suppression window and the
// receiver expiry.
const DefaultTypingWindow = 2 * time.Second

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	ConversationID string
	Window         time.Duration
	Clock          clock.Clock
	// Emit sends one typing frame. A non-nil error leaves the sender
	// unsuppressed so the next keystroke tries again.
	Emit func() error
}

// Tracker throttles outgoing typing signals and tracks whether the other
// participant is composing.
type Tracker struct {
	conversationID string
	window         time.Duration
	clock          clock.Clock
	emit           func() error

	mu         sync.Mutex
	stopped    bool
	suppressed *clock.Timer
	typing     bool
	expiry     *clock.Timer
	expirySeq  uint64
	observers  []func(bool)
}

// NewTracker creates a Tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	t := &Tracker{
		conversationID: cfg.ConversationID,
		window:         cfg.Window,
		clock:          cfg.Clock,
		emit:           cfg.Emit,
	}
	if t.window <= 0 {
		t.window = DefaultTypingWindow
	}
	if t.clock == nil {
		t.clock = clock.New()
	}
	return t
}

// Keystroke emits a typing signal unless one went out within the last
// window. Later keystrokes do not extend the window. It reports whether a
// signal was emitted.
func (t *Tracker) Keystroke() bool {
	t.mu.Lock()
	if t.stopped || t.suppressed != nil || t.emit == nil {
		t.mu.Unlock()
		return false
	}
	var timer *clock.Timer
	timer = t.clock.AfterFunc(t.window, func() {
		t.mu.Lock()
		if t.suppressed == timer {
			t.suppressed = nil
		}
		t.mu.Unlock()
	})
	t.suppressed = timer
	t.mu.Unlock()

	if err := t.emit(); err != nil {
		t.mu.Lock()
		if t.suppressed == timer {
			timer.Stop()
			t.suppressed = nil
		}
		t.mu.Unlock()
		return false
	}
	return true
}

// Observe records an incoming typing signal. Signals for other
// conversations are ignored. The indicator stays on until a full window
// passes without a new signal.
func (t *Tracker) Observe(conversationID string) {
	t.mu.Lock()
	if t.stopped || conversationID != t.conversationID {
		t.mu.Unlock()
		return
	}
	if t.expiry != nil {
		t.expiry.Stop()
	}
	t.expirySeq++
	seq := t.expirySeq
	t.expiry = t.clock.AfterFunc(t.window, func() { t.expire(seq) })
	changed := !t.typing
	t.typing = true
	t.mu.Unlock()

	if changed {
		t.notify(true)
	}
}

// IsTyping reports whether the other participant is shown as typing.
func (t *Tracker) IsTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// OnChange registers fn for indicator changes.
func (t *Tracker) OnChange(fn func(typing bool)) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Stop cancels both timers. The tracker ignores all input afterwards.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.typing = false
	if t.suppressed != nil {
		t.suppressed.Stop()
		t.suppressed = nil
	}
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
}

func (t *Tracker) expire(seq uint64) {
	t.mu.Lock()
	if seq != t.expirySeq || !t.typing || t.stopped {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.expiry = nil
	t.mu.Unlock()

	t.notify(false)
}

func (t *Tracker) notify(typing bool) {
	t.mu.Lock()
	fns := append([]func(bool){}, t.observers...)
	t.mu.Unlock()
	for _, fn := range fns {
		fn(typing)
	}
}
