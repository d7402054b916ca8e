package chat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitCounter struct {
	mu  sync.Mutex
	n   int
	err error
}

func (e *emitCounter) emit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.n++
	return nil
}

func (e *emitCounter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n
}

func TestTracker_KeystrokeThrottle(t *testing.T) {
	mock := clock.NewMock()
	counter := &emitCounter{}
	tr := NewTracker(TrackerConfig{ConversationID: "c1", Clock: mock, Emit: counter.emit})
	defer tr.Stop()

	assert.True(t, tr.Keystroke())
	// continuous typing inside the window does not extend it
	for i := 0; i < 19; i++ {
		mock.Add(100 * time.Millisecond)
		assert.False(t, tr.Keystroke())
	}
	assert.Equal(t, 1, counter.count())

	mock.Add(100 * time.Millisecond)
	require.Eventually(t, tr.Keystroke, time.Second, time.Millisecond)
	assert.Equal(t, 2, counter.count())
}

func TestTracker_FailedEmitDoesNotSuppress(t *testing.T) {
	counter := &emitCounter{err: errors.New("not connected")}
	tr := NewTracker(TrackerConfig{ConversationID: "c1", Clock: clock.NewMock(), Emit: counter.emit})
	defer tr.Stop()

	assert.False(t, tr.Keystroke())

	counter.mu.Lock()
	counter.err = nil
	counter.mu.Unlock()
	assert.True(t, tr.Keystroke())
	assert.Equal(t, 1, counter.count())
}

func TestTracker_ObserveExpiresAfterWindow(t *testing.T) {
	mock := clock.NewMock()
	tr := NewTracker(TrackerConfig{ConversationID: "c1", Clock: mock})
	defer tr.Stop()

	var mu sync.Mutex
	var changes []bool
	tr.OnChange(func(typing bool) {
		mu.Lock()
		changes = append(changes, typing)
		mu.Unlock()
	})

	tr.Observe("c1")
	assert.True(t, tr.IsTyping())

	mock.Add(1500 * time.Millisecond)
	tr.Observe("c1") // renewal restarts the expiry
	mock.Add(1500 * time.Millisecond)
	assert.True(t, tr.IsTyping())

	mock.Add(500 * time.Millisecond)
	require.Eventually(t, func() bool { return !tr.IsTyping() }, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, changes)
}

func TestTracker_ObserveOtherConversationIgnored(t *testing.T) {
	tr := NewTracker(TrackerConfig{ConversationID: "c1", Clock: clock.NewMock()})
	defer tr.Stop()

	tr.Observe("c2")
	assert.False(t, tr.IsTyping())
}

func TestTracker_StopCancelsTimers(t *testing.T) {
	mock := clock.NewMock()
	counter := &emitCounter{}
	tr := NewTracker(TrackerConfig{ConversationID: "c1", Clock: mock, Emit: counter.emit})

	notified := 0
	tr.OnChange(func(bool) { notified++ })

	tr.Observe("c1")
	tr.Keystroke()
	tr.Stop()

	assert.False(t, tr.IsTyping())
	mock.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, notified)
	assert.False(t, tr.Keystroke())
	tr.Observe("c1")
	assert.False(t, tr.IsTyping())
}
