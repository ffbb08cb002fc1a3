// Package stats holds the StatsAggregator and the dashboard refresher. Store failures never reach
// callers as errors: results come back zero-valued and flagged Degraded.
package stats

import (
	"context"
	"sort"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	blockdomain "sessionguard/internal/block/domain"
	identityrepo "sessionguard/internal/identity/repository"
	"sessionguard/internal/logging"
	"sessionguard/internal/platform/clock"
	sessiondomain "sessionguard/internal/session/domain"
	"sessionguard/internal/stats/domain"
	"sessionguard/internal/stats/repository"
	"sessionguard/internal/telemetry"
)

// BlockReader is the part of the block registry the aggregator reads.
type BlockReader interface {
	IsActive(ctx context.Context, userID string) (bool, error)
	ListActive(ctx context.Context) ([]*blockdomain.Block, error)
}

// Aggregator computes per-user security rollups.
type Aggregator struct {
	repo       repository.Repository
	blocks     BlockReader
	directory  identityrepo.Directory
	breaker    *gobreaker.CircuitBreaker[interface{}]
	group      singleflight.Group
	clock      clock.Clock
	loc        *time.Location
	staleAfter time.Duration
	metrics    *telemetry.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(a *Aggregator) { a.clock = clock.OrSystem(c) } }

// WithLocation sets the reference zone for period boundaries.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithStaleAfter sets how recent a heartbeat must be for a session to count as online.
func WithStaleAfter(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.staleAfter = d
		}
	}
}

// WithDirectory sets the identity collaborator for display name and plan tier.
func WithDirectory(d identityrepo.Directory) Option { return func(a *Aggregator) { a.directory = d } }

// WithMetrics sets the metric instruments.
func WithMetrics(m *telemetry.Metrics) Option { return func(a *Aggregator) { a.metrics = m } }

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(a *Aggregator) { a.breaker = NewBreaker(cfg) }
}

// NewAggregator returns an Aggregator over repo and blocks.
func NewAggregator(repo repository.Repository, blocks BlockReader, opts ...Option) *Aggregator {
	a := &Aggregator{
		repo:       repo,
		blocks:     blocks,
		clock:      clock.System,
		loc:        time.UTC,
		staleAfter: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.breaker == nil {
		a.breaker = NewBreaker(BreakerConfig{})
	}
	return a
}

// UserSnapshot returns one user's rollup. Parts that cannot be read are zero and Degraded is set.
func (a *Aggregator) UserSnapshot(ctx context.Context, userID string) domain.Snapshot {
	snap := domain.Snapshot{UserID: userID}
	now := a.clock.Now().UTC()

	ru, err := call(a, func() (*domain.Rollup, error) {
		return a.repo.UserRollup(ctx, userID, now.Add(-a.staleAfter))
	})
	if err != nil {
		a.degrade(ctx, "user_snapshot", err)
		snap.Degraded = true
	} else if ru != nil {
		applyRollup(&snap, ru)
	}

	blocked, err := call(a, func() (bool, error) { return a.blocks.IsActive(ctx, userID) })
	if err != nil {
		a.degrade(ctx, "user_snapshot_block", err)
		snap.Degraded = true
	}
	snap.Blocked = blocked

	if !a.applyProfiles(ctx, []*domain.Snapshot{&snap}) {
		snap.Degraded = true
	}
	return snap
}

// AllUsersSnapshot returns every user's rollup from one grouped query plus one block listing.
// Concurrent callers share a single computation.
func (a *Aggregator) AllUsersSnapshot(ctx context.Context) domain.Overview {
	v, _, _ := a.group.Do("all", func() (interface{}, error) {
		return a.allUsers(ctx), nil
	})
	ov := v.(domain.Overview)
	ov.Users = append([]domain.Snapshot(nil), ov.Users...)
	return ov
}

func (a *Aggregator) allUsers(ctx context.Context) domain.Overview {
	now := a.clock.Now().UTC()
	ov := domain.Overview{Users: []domain.Snapshot{}, GeneratedAt: now}

	rollups, err := call(a, func() ([]*domain.Rollup, error) {
		return a.repo.Rollups(ctx, now.Add(-a.staleAfter))
	})
	if err != nil {
		a.degrade(ctx, "all_users", err)
		ov.Degraded = true
	}
	active, err := call(a, func() ([]*blockdomain.Block, error) { return a.blocks.ListActive(ctx) })
	if err != nil {
		a.degrade(ctx, "all_users_blocks", err)
		ov.Degraded = true
	}

	byUser := make(map[string]*domain.Snapshot, len(rollups))
	for _, ru := range rollups {
		s := &domain.Snapshot{UserID: ru.UserID}
		applyRollup(s, ru)
		byUser[ru.UserID] = s
	}
	for _, b := range active {
		if !b.IsEffective(now) {
			continue
		}
		s, ok := byUser[b.UserID]
		if !ok {
			s = &domain.Snapshot{UserID: b.UserID}
			byUser[b.UserID] = s
		}
		s.Blocked = true
	}

	ptrs := make([]*domain.Snapshot, 0, len(byUser))
	for _, s := range byUser {
		ptrs = append(ptrs, s)
	}
	sort.Slice(ptrs, func(i, j int) bool { return ptrs[i].UserID < ptrs[j].UserID })
	if !a.applyProfiles(ctx, ptrs) {
		ov.Degraded = true
	}
	for _, s := range ptrs {
		if ov.Degraded {
			s.Degraded = true
		}
		if s.Online {
			ov.OnlineUsers++
		}
		if s.Blocked {
			ov.BlockedUsers++
		}
		ov.Users = append(ov.Users, *s)
	}
	return ov
}

// PeriodTime sums the minutes of the user's sessions that started within the calendar period
// containing now, in the reference zone. Only an unknown period is an error.
func (a *Aggregator) PeriodTime(ctx context.Context, userID string, period domain.Period) (domain.PeriodTotal, error) {
	from, to, err := domain.Bounds(period, a.clock.Now(), a.loc)
	if err != nil {
		return domain.PeriodTotal{}, err
	}
	total := domain.PeriodTotal{Period: period, From: from, To: to}
	minutes, err := call(a, func() (int, error) { return a.repo.MinutesStartedBetween(ctx, userID, from, to) })
	if err != nil {
		a.degrade(ctx, "period_time", err)
		total.Degraded = true
		return total, nil
	}
	total.Minutes = minutes
	return total, nil
}

// RecentSessions returns sessions started within window, newest first.
func (a *Aggregator) RecentSessions(ctx context.Context, window time.Duration) domain.Recent {
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := a.clock.Now().UTC().Add(-window)
	out := domain.Recent{Sessions: []*sessiondomain.Session{}, Since: since}
	list, err := call(a, func() ([]*sessiondomain.Session, error) { return a.repo.SessionsStartedSince(ctx, since) })
	if err != nil {
		a.degrade(ctx, "recent_sessions", err)
		out.Degraded = true
		return out
	}
	if list != nil {
		out.Sessions = list
	}
	return out
}

// applyProfiles fills display name and plan tier. Returns false when the directory failed.
func (a *Aggregator) applyProfiles(ctx context.Context, snaps []*domain.Snapshot) bool {
	if a.directory == nil || len(snaps) == 0 {
		return true
	}
	ids := make([]string, 0, len(snaps))
	for _, s := range snaps {
		ids = append(ids, s.UserID)
	}
	profiles, err := a.directory.Lookup(ctx, ids)
	if err != nil {
		a.degrade(ctx, "identity", err)
		return false
	}
	for _, s := range snaps {
		if p, ok := profiles[s.UserID]; ok {
			s.DisplayName = strings.TrimSpace(p.DisplayName)
			s.PlanTier = p.PlanTier
		}
	}
	return true
}

func (a *Aggregator) degrade(ctx context.Context, op string, err error) {
	a.metrics.StatsDegraded(ctx, op)
	logging.Ctx(ctx).Warn().Err(err).Str("op", op).Msg("stats: serving degraded result")
}

func applyRollup(s *domain.Snapshot, ru *domain.Rollup) {
	s.TotalSessions = ru.Sessions
	s.DistinctAddresses = ru.DistinctAddresses
	s.TotalMinutes = ru.TotalMinutes
	s.LastSessionStart = ru.LastSessionStart
	s.Online = ru.Online
}

// call runs fn through the aggregator's circuit breaker.
func call[T any](a *Aggregator, fn func() (T, error)) (T, error) {
	var zero T
	v, err := a.breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	return v.(T), nil
}
