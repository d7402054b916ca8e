package unread

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/pkg/logger"
	"github.com/becayis/chatcore/pkg/metrics"
)

// DefaultInterval is the background refresh period.
const DefaultInterval = 30 * time.Second

// Source is the REST surface the aggregator polls.
type Source interface {
	Notifications(ctx context.Context) ([]model.Notification, error)
	Invitations(ctx context.Context) (*model.InvitationList, error)
	Conversations(ctx context.Context) ([]model.Conversation, error)
}

// Config configures an Aggregator.
type Config struct {
	SelfID   string
	Source   Source
	Interval time.Duration

	// HasSession gates every refresh; nil means always.
	HasSession func() bool
	Clock      clock.Clock
	Logger     *logger.Logger
}

// Aggregator polls the three sources and publishes a read-only Tally.
// A refresh commits only when all three fetches succeed; otherwise the
// previous snapshot stays.
type Aggregator struct {
	selfID     string
	source     Source
	interval   time.Duration
	hasSession func() bool
	clock      clock.Clock
	logger     *logger.Logger

	snapshot  atomic.Pointer[Tally]
	suspended atomic.Bool
	// seq orders commits so a slow refresh cannot overwrite a newer one.
	seq atomic.Uint64
	// commitMu makes the suspended/seq check and the snapshot swap one
	// step, and serializes suspension with it.
	commitMu sync.Mutex
	notifyMu sync.Mutex

	mu        sync.Mutex
	observers []func(Tally)
}

// New creates an Aggregator with a zero snapshot.
func New(cfg Config) *Aggregator {
	a := &Aggregator{
		selfID:     cfg.SelfID,
		source:     cfg.Source,
		interval:   cfg.Interval,
		hasSession: cfg.HasSession,
		clock:      cfg.Clock,
		logger:     logger.OrNop(cfg.Logger).Named("unread"),
	}
	if a.interval <= 0 {
		a.interval = DefaultInterval
	}
	if a.clock == nil {
		a.clock = clock.New()
	}
	a.snapshot.Store(&Tally{})
	return a
}

// Snapshot returns the last committed tally.
func (a *Aggregator) Snapshot() Tally {
	return *a.snapshot.Load()
}

// OnChange registers fn for committed tallies that differ from the
// previous one. Calls are serialized; fn must not call Refresh or
// Navigate.
func (a *Aggregator) OnChange(fn func(Tally)) {
	a.mu.Lock()
	a.observers = append(a.observers, fn)
	a.mu.Unlock()
}

// Refresh fetches all sources concurrently and commits the reduction if
// every fetch succeeded. It reports whether a tally was committed.
// Failures are logged and metered only.
func (a *Aggregator) Refresh(ctx context.Context) bool {
	if a.suspended.Load() || (a.hasSession != nil && !a.hasSession()) {
		return false
	}
	seq := a.seq.Add(1)

	var (
		notifications []model.Notification
		invitations   *model.InvitationList
		conversations []model.Conversation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		notifications, err = a.source.Notifications(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		invitations, err = a.source.Invitations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		conversations, err = a.source.Conversations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.UnreadRefreshes.WithLabelValues("error").Inc()
		a.logger.Debug("unread refresh failed", zap.Error(err))
		return false
	}

	// a navigation to an admin page or a newer refresh wins
	current := func() bool { return !a.suspended.Load() && a.seq.Load() == seq }
	if !a.commit(Compute(a.selfID, notifications, invitations, conversations), current) {
		metrics.UnreadRefreshes.WithLabelValues("stale").Inc()
		return false
	}
	metrics.UnreadRefreshes.WithLabelValues("ok").Inc()
	return true
}

// Navigate records a route change. Administrative paths suspend the
// aggregator and clear the tally; any other path resumes it and
// refreshes.
func (a *Aggregator) Navigate(ctx context.Context, path string) {
	if IsAdminPath(path) {
		var was bool
		a.commit(Tally{}, func() bool {
			was = a.suspended.Swap(true)
			a.seq.Add(1)
			return true
		})
		if !was {
			a.logger.Debug("suspended on administrative view", zap.String("path", path))
		}
		return
	}
	a.suspended.Store(false)
	a.Refresh(ctx)
}

// Suspended reports whether polling is paused.
func (a *Aggregator) Suspended() bool {
	return a.suspended.Load()
}

// Run refreshes once and then every interval until ctx is done. Ticks
// while suspended are skipped.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := a.clock.Ticker(a.interval)
	defer ticker.Stop()

	a.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}

// IsAdminPath reports whether path belongs to the administrative area.
func IsAdminPath(path string) bool {
	return strings.HasPrefix(path, "/admin")
}

// commit stores t if valid, evaluated under commitMu, still holds.
// Observers always receive the latest snapshot, never a superseded one.
func (a *Aggregator) commit(t Tally, valid func() bool) bool {
	a.commitMu.Lock()
	if !valid() {
		a.commitMu.Unlock()
		return false
	}
	prev := a.snapshot.Swap(&t)
	a.commitMu.Unlock()

	metrics.RecordUnread(t.Notifications, t.PendingInvitations, t.UnreadMessages)
	if prev != nil && *prev == t {
		return true
	}

	a.mu.Lock()
	fns := append([]func(Tally){}, a.observers...)
	a.mu.Unlock()

	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	latest := a.Snapshot()
	for _, fn := range fns {
		fn(latest)
	}
	return true
}
