// Package tracker records sessions: open, heartbeat, close, and closing sessions whose client went away.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessionguard/internal/events"
	"sessionguard/internal/logging"
	"sessionguard/internal/platform/clock"
	"sessionguard/internal/session/domain"
	"sessionguard/internal/session/repository"
	"sessionguard/internal/telemetry"
)

var (
	// ErrSessionNotFound is returned when the session id is unknown.
	ErrSessionNotFound = errors.New("tracker: session not found")
	// ErrUserRequired is returned when OpenSession is called without a user id.
	ErrUserRequired = errors.New("tracker: user id is required")
)

// DefaultStaleAfter is how long a session may go without a heartbeat before it stops counting as online.
const DefaultStaleAfter = 10 * time.Minute

const sweepBatch = 500

// OpenHook runs after a session is recorded. The server wires the abuse detector here.
type OpenHook func(ctx context.Context, userID string)

// Tracker implements the session lifecycle on top of a session repository.
type Tracker struct {
	repo       repository.Repository
	clock      clock.Clock
	publisher  events.Publisher
	metrics    *telemetry.Metrics
	staleAfter time.Duration
	onOpen     OpenHook
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(t *Tracker) { t.clock = clock.OrSystem(c) } }

// WithPublisher sets where session change events go.
func WithPublisher(p events.Publisher) Option { return func(t *Tracker) { t.publisher = p } }

// WithMetrics sets the metric instruments.
func WithMetrics(m *telemetry.Metrics) Option { return func(t *Tracker) { t.metrics = m } }

// WithStaleAfter sets the heartbeat staleness threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.staleAfter = d
		}
	}
}

// WithOpenHook sets a hook run after every successful OpenSession.
func WithOpenHook(h OpenHook) Option { return func(t *Tracker) { t.onOpen = h } }

// New returns a Tracker backed by repo.
func New(repo repository.Repository, opts ...Option) *Tracker {
	t := &Tracker{repo: repo, clock: clock.System, staleAfter: DefaultStaleAfter}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StaleAfter returns the heartbeat staleness threshold.
func (t *Tracker) StaleAfter() time.Duration { return t.staleAfter }

// OpenSession records a new active session and returns its id. Blocked users are not refused here.
func (t *Tracker) OpenSession(ctx context.Context, userID, originAddress, clientDescriptor string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrUserRequired
	}
	now := t.clock.Now().UTC()
	s := &domain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		OriginAddress:    CanonicalAddress(originAddress),
		ClientDescriptor: strings.TrimSpace(clientDescriptor),
		StartedAt:        now,
		Active:           true,
		LastHeartbeatAt:  now,
	}
	if err := t.repo.Create(ctx, s); err != nil {
		return "", fmt.Errorf("tracker: create session: %w", err)
	}
	t.metrics.SessionOpened(ctx)
	logging.Ctx(ctx).Debug().Str("session_id", s.ID).Str("user_id", userID).Str("origin", s.OriginAddress).Msg("session opened")
	events.Emit(ctx, t.publisher, events.ChangeEvent{Kind: events.KindSession, Op: events.OpCreated, ID: s.ID, UserID: userID, At: now})
	if t.onOpen != nil {
		t.onOpen(ctx, userID)
	}
	return s.ID, nil
}

// Heartbeat refreshes the session's duration from wall time since start and returns it in minutes.
// A closed session is left unchanged and its frozen duration returned.
func (t *Tracker) Heartbeat(ctx context.Context, sessionID string) (int, error) {
	s, err := t.repo.GetByID(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("tracker: get session: %w", err)
	}
	if s == nil {
		return 0, ErrSessionNotFound
	}
	if !s.Active {
		return s.DurationMinutes, nil
	}
	now := t.clock.Now().UTC()
	minutes := max(s.DurationMinutes, domain.ElapsedMinutes(s.StartedAt, now))
	if _, err := t.repo.Touch(ctx, sessionID, now, minutes); err != nil {
		return 0, fmt.Errorf("tracker: touch session: %w", err)
	}
	return minutes, nil
}

// CloseSession ends the session now and freezes its duration. Closing twice is a no-op.
// Returns the frozen duration in minutes.
func (t *Tracker) CloseSession(ctx context.Context, sessionID string) (int, error) {
	s, err := t.repo.GetByID(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("tracker: get session: %w", err)
	}
	if s == nil {
		return 0, ErrSessionNotFound
	}
	if !s.Active {
		return s.DurationMinutes, nil
	}
	now := t.clock.Now().UTC()
	minutes := max(s.DurationMinutes, domain.ElapsedMinutes(s.StartedAt, now))
	closed, err := t.repo.Close(ctx, sessionID, now, minutes)
	if err != nil {
		return 0, fmt.Errorf("tracker: close session: %w", err)
	}
	if closed {
		t.metrics.SessionClosed(ctx)
		events.Emit(ctx, t.publisher, events.ChangeEvent{Kind: events.KindSession, Op: events.OpUpdated, ID: sessionID, UserID: s.UserID, At: now})
	}
	return minutes, nil
}

// GetSession returns the session or ErrSessionNotFound.
func (t *Tracker) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := t.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("tracker: get session: %w", err)
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ListActive returns open sessions newest first, optionally for one user.
func (t *Tracker) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return t.repo.ListActive(ctx, strings.TrimSpace(userID))
}

// ListByUser returns the user's session history newest first.
func (t *Tracker) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return t.repo.ListByUser(ctx, userID)
}

// IsOnline reports whether s is open with a heartbeat inside the staleness threshold.
func (t *Tracker) IsOnline(s *domain.Session) bool {
	return s.IsOnline(t.clock.Now(), t.staleAfter)
}

// SweepStale closes every open session with no heartbeat for the staleness threshold.
// The end time is the last heartbeat, so time after the client vanished is not counted.
// Returns how many sessions were closed.
func (t *Tracker) SweepStale(ctx context.Context) (int, error) {
	cutoff := t.clock.Now().UTC().Add(-t.staleAfter)
	total := 0
	for {
		stale, err := t.repo.ListStale(ctx, cutoff, sweepBatch)
		if err != nil {
			return total, fmt.Errorf("tracker: list stale sessions: %w", err)
		}
		closedInBatch := 0
		for _, s := range stale {
			minutes := max(s.DurationMinutes, domain.ElapsedMinutes(s.StartedAt, s.LastHeartbeatAt))
			closed, err := t.repo.Close(ctx, s.ID, s.LastHeartbeatAt, minutes)
			if err != nil {
				return total, fmt.Errorf("tracker: close stale session %s: %w", s.ID, err)
			}
			if !closed {
				continue
			}
			closedInBatch++
			events.Emit(ctx, t.publisher, events.ChangeEvent{Kind: events.KindSession, Op: events.OpUpdated, ID: s.ID, UserID: s.UserID, At: s.LastHeartbeatAt})
		}
		total += closedInBatch
		if len(stale) < sweepBatch || closedInBatch == 0 {
			break
		}
	}
	t.metrics.SessionsSwept(ctx, total)
	return total, nil
}

// CanonicalAddress normalizes an origin address so textual variants of one IP count once.
// A host:port form loses its port. Values that are not IPs are kept trimmed and lowercased.
func CanonicalAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	if ip := net.ParseIP(addr); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		return ip.String()
	}
	return strings.ToLower(addr)
}
