package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sessionguard/internal/events"
	"sessionguard/internal/logging"
	"sessionguard/internal/stats/domain"
)

// Subscriber provides a change-event feed.
type Subscriber interface {
	Subscribe() (<-chan events.ChangeEvent, func())
}

// Refresher keeps the dashboard overview current: it recomputes on a fixed interval and after
// change events, collapsing events that arrive within the debounce window into one refresh.
type Refresher struct {
	agg      *Aggregator
	interval time.Duration
	debounce time.Duration
	changes  Subscriber

	mu        sync.RWMutex
	latest    domain.Overview
	ready     bool
	refreshes atomic.Int64
}

// NewRefresher returns a Refresher. changes may be nil; then only the interval drives refreshes.
func NewRefresher(agg *Aggregator, interval, debounce time.Duration, changes Subscriber) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Refresher{agg: agg, interval: interval, debounce: debounce, changes: changes}
}

// Serve refreshes until ctx is cancelled. It is a supervised service.
func (r *Refresher) Serve(ctx context.Context) error {
	var feed <-chan events.ChangeEvent
	if r.changes != nil {
		ch, unsubscribe := r.changes.Subscribe()
		defer unsubscribe()
		feed = ch
	}

	r.Refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Refresh(ctx)
		case _, ok := <-feed:
			if !ok {
				feed = nil
				continue
			}
			if pending == nil {
				timer = time.NewTimer(r.debounce)
				pending = timer.C
			}
		case <-pending:
			pending = nil
			r.Refresh(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (r *Refresher) String() string { return "dashboard-refresher" }

// Refresh recomputes the overview now and stores it.
func (r *Refresher) Refresh(ctx context.Context) domain.Overview {
	ov := r.agg.AllUsersSnapshot(ctx)
	r.refreshes.Add(1)
	r.mu.Lock()
	r.latest = ov
	r.ready = true
	r.mu.Unlock()
	logging.Debug().Int("users", len(ov.Users)).Bool("degraded", ov.Degraded).Msg("stats: dashboard refreshed")
	return ov
}

// Latest returns the most recent overview, computing one if none exists yet.
func (r *Refresher) Latest(ctx context.Context) domain.Overview {
	r.mu.RLock()
	ov, ready := r.latest, r.ready
	r.mu.RUnlock()
	if !ready {
		return r.Refresh(ctx)
	}
	return ov
}

// Refreshes returns how many refreshes have run.
func (r *Refresher) Refreshes() int64 {
	return r.refreshes.Load()
}
