package unread

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becayis/chatcore/internal/model"
)

type fakeSource struct {
	mu            sync.Mutex
	notifications []model.Notification
	invitations   *model.InvitationList
	conversations []model.Conversation
	invErr        error
	calls         atomic.Int32
}

func (f *fakeSource) Notifications(context.Context) ([]model.Notification, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifications, nil
}

func (f *fakeSource) Invitations(context.Context) (*model.InvitationList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invErr != nil {
		return nil, f.invErr
	}
	return f.invitations, nil
}

func (f *fakeSource) Conversations(context.Context) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations, nil
}

// sixUnread yields 3 unread notifications, 2 pending received invitations
// and 1 conversation whose last message is unread and from someone else.
func sixUnread() *fakeSource {
	return &fakeSource{
		notifications: []model.Notification{
			{ID: "n1"}, {ID: "n2"}, {ID: "n3"}, {ID: "n4", Read: true},
		},
		invitations: &model.InvitationList{
			Sent: []model.Invitation{{ID: "s1", Status: model.InvitationPending}},
			Received: []model.Invitation{
				{ID: "i1", Status: model.InvitationPending},
				{ID: "i2", Status: model.InvitationPending},
				{ID: "i3", Status: model.InvitationAccepted},
			},
		},
		conversations: []model.Conversation{
			{ID: "c1", LastMessage: &model.Message{SenderID: "u2"}},
			{ID: "c2", LastMessage: &model.Message{SenderID: "u1"}},
			{ID: "c3", LastMessage: &model.Message{SenderID: "u2", Read: true}},
			{ID: "c4"},
		},
	}
}

func TestCompute(t *testing.T) {
	src := sixUnread()
	tally := Compute("u1", src.notifications, src.invitations, src.conversations)

	assert.Equal(t, Tally{Notifications: 3, PendingInvitations: 2, UnreadMessages: 1}, tally)
	assert.Equal(t, 6, tally.Total())
}

func TestCompute_Empty(t *testing.T) {
	assert.Zero(t, Compute("u1", nil, nil, nil).Total())
}

func TestAggregator_RefreshCommits(t *testing.T) {
	a := New(Config{SelfID: "u1", Source: sixUnread(), Clock: clock.NewMock()})

	var got []Tally
	a.OnChange(func(t Tally) { got = append(got, t) })

	require.True(t, a.Refresh(context.Background()))
	assert.Equal(t, 6, a.Snapshot().Total())

	// unchanged tally does not notify again
	require.True(t, a.Refresh(context.Background()))
	assert.Len(t, got, 1)
}

func TestAggregator_PartialFailureKeepsSnapshot(t *testing.T) {
	src := sixUnread()
	a := New(Config{SelfID: "u1", Source: src, Clock: clock.NewMock()})
	require.True(t, a.Refresh(context.Background()))

	src.mu.Lock()
	src.notifications = nil
	src.invErr = errors.New("503")
	src.mu.Unlock()

	assert.False(t, a.Refresh(context.Background()))
	assert.Equal(t, 6, a.Snapshot().Total(), "never partially updated")
}

func TestAggregator_AdminPathSuppresses(t *testing.T) {
	src := sixUnread()
	a := New(Config{SelfID: "u1", Source: src, Clock: clock.NewMock()})
	ctx := context.Background()

	a.Navigate(ctx, "/dashboard")
	assert.Equal(t, 6, a.Snapshot().Total())

	a.Navigate(ctx, "/admin/users")
	assert.True(t, a.Suspended())
	assert.Zero(t, a.Snapshot().Total())

	calls := src.calls.Load()
	assert.False(t, a.Refresh(ctx))
	assert.Equal(t, calls, src.calls.Load())

	a.Navigate(ctx, "/chat/c1")
	assert.False(t, a.Suspended())
	assert.Equal(t, 6, a.Snapshot().Total())
}

// gatedSource holds Conversations until gate is closed.
type gatedSource struct {
	*fakeSource
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedSource) Conversations(ctx context.Context) ([]model.Conversation, error) {
	g.entered <- struct{}{}
	<-g.gate
	return g.fakeSource.Conversations(ctx)
}

func TestAggregator_AdminNavigationDuringRefresh(t *testing.T) {
	src := &gatedSource{fakeSource: sixUnread(), entered: make(chan struct{}, 1), gate: make(chan struct{})}
	a := New(Config{SelfID: "u1", Source: src, Clock: clock.NewMock()})
	ctx := context.Background()

	var last atomic.Pointer[Tally]
	a.OnChange(func(t Tally) { last.Store(&t) })

	done := make(chan bool, 1)
	go func() { done <- a.Refresh(ctx) }()
	<-src.entered

	a.Navigate(ctx, "/admin/listings")
	close(src.gate)

	assert.False(t, <-done, "in-flight refresh must not commit after suspension")
	assert.Zero(t, a.Snapshot().Total())
	if got := last.Load(); got != nil {
		assert.Zero(t, got.Total())
	}
}

func TestAggregator_AdminNavigationRacingRefresh(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		a := New(Config{SelfID: "u1", Source: sixUnread(), Clock: clock.NewMock()})
		var last atomic.Pointer[Tally]
		a.OnChange(func(t Tally) { last.Store(&t) })

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); a.Refresh(ctx) }()
		go func() { defer wg.Done(); a.Navigate(ctx, "/admin") }()
		wg.Wait()

		require.True(t, a.Suspended())
		require.Zero(t, a.Snapshot().Total(), "iteration %d", i)
		if got := last.Load(); got != nil {
			require.Zero(t, got.Total(), "iteration %d: last notification", i)
		}
	}
}

func TestAggregator_NoSession(t *testing.T) {
	src := sixUnread()
	a := New(Config{SelfID: "u1", Source: src, HasSession: func() bool { return false }})

	assert.False(t, a.Refresh(context.Background()))
	assert.Zero(t, src.calls.Load())
}

func TestAggregator_RunPollsOnInterval(t *testing.T) {
	mock := clock.NewMock()
	src := sixUnread()
	a := New(Config{SelfID: "u1", Source: src, Clock: mock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	src.mu.Lock()
	src.conversations = nil
	src.mu.Unlock()

	mock.Add(29 * time.Second)
	assert.EqualValues(t, 1, src.calls.Load())
	mock.Add(time.Second)
	require.Eventually(t, func() bool { return a.Snapshot().Total() == 5 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestIsAdminPath(t *testing.T) {
	assert.True(t, IsAdminPath("/admin"))
	assert.True(t, IsAdminPath("/admin/listings"))
	assert.False(t, IsAdminPath("/dashboard"))
	assert.False(t, IsAdminPath("/chat/admin"))
}
