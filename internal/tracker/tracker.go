// Package tracker keeps a live, consistent view of the order list for the
// fulfilment board.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"pizzaria/internal/model"
	"pizzaria/internal/repository"

	"github.com/rs/zerolog"
)

// Lister reads the current order list, newest first.
type Lister interface {
	List(ctx context.Context, limit int) ([]model.Order, error)
}

// Snapshot is one full read of the order list. Err is set when the read
// failed; Orders then holds the previous good list.
type Snapshot struct {
	Orders []model.Order `json:"orders"`
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
	At     time.Time     `json:"at"`
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Tracker subscribes to the order change feed and, on every change, re-lists
// the orders and fans the full snapshot out to subscribers.
type Tracker struct {
	feed   repository.ChangeFeed
	lister Lister
	limit  int
	logger zerolog.Logger

	mu      sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	latest  Snapshot
	cancel  context.CancelFunc
	done    chan struct{}

	after func(time.Duration) <-chan time.Time
}

// New creates a tracker. limit caps the listed orders; 0 lists all.
func New(feed repository.ChangeFeed, lister Lister, limit int, logger zerolog.Logger) *Tracker {
	return &Tracker{
		feed:   feed,
		lister: lister,
		limit:  limit,
		logger: logger.With().Str("component", "tracker").Logger(),
		subs:   make(map[int]chan Snapshot),
		after:  time.After,
	}
}

// ErrAlreadyStarted is returned by Start on a running tracker.
var ErrAlreadyStarted = errors.New("tracker already started")

// Start loads the first snapshot and acquires the change feed subscription.
// The subscription lives until ctx is cancelled or Close is called.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	t.Refresh(runCtx)

	go t.run(runCtx)
	return nil
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	backoff := minBackoff
	for {
		started := time.Now()
		delivered := false
		err := t.feed.Listen(ctx, func(change model.OrderChange) {
			delivered = true
			t.logger.Debug().Str("op", change.Op).Str("order_id", change.OrderID.String()).Msg("order changed")
			t.Refresh(ctx)
		})
		if ctx.Err() != nil {
			return
		}
		// A subscription that carried changes or stayed up was healthy.
		if delivered || time.Since(started) >= maxBackoff {
			backoff = minBackoff
		}
		if err != nil {
			t.logger.Error().Err(err).Dur("retry_in", backoff).Msg("change feed failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-t.after(backoff):
		}
		backoff = nextBackoff(backoff)

		// Changes may have been missed while disconnected.
		t.Refresh(ctx)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Refresh re-lists the orders and publishes the snapshot.
func (t *Tracker) Refresh(ctx context.Context) {
	orders, err := t.lister.List(ctx, t.limit)

	t.mu.Lock()
	snap := Snapshot{Orders: orders, At: time.Now().UTC()}
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to refresh orders")
		snap.Orders = t.latest.Orders
		snap.Err = err
		snap.Error = err.Error()
	}
	t.latest = snap
	for _, ch := range t.subs {
		offer(ch, snap)
	}
	t.mu.Unlock()
}

// offer replaces any undelivered snapshot with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Latest returns the most recent snapshot.
func (t *Tracker) Latest() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Subscribe returns a channel receiving every new snapshot, starting with the
// current one. Slow readers only see the newest snapshot. The returned func
// releases the subscription and closes the channel.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	if !t.latest.At.IsZero() {
		ch <- t.latest
	}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			if _, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(ch)
			}
			t.mu.Unlock()
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (t *Tracker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close releases the change feed subscription and closes every subscriber
// channel.
func (t *Tracker) Close() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	t.mu.Lock()
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
	t.mu.Unlock()
}
