// Package policy holds the SettingsStore: the single active security policy, its history,
// and a short-lived cache in front of the active row.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"sessionguard/internal/events"
	"sessionguard/internal/logging"
	"sessionguard/internal/platform/clock"
	"sessionguard/internal/policy/domain"
	"sessionguard/internal/policy/repository"
	"sessionguard/internal/telemetry"
)

// ErrInvalidPolicy is returned when an update has out-of-range values.
var ErrInvalidPolicy = errors.New("policy: invalid policy")

const activeKey = "active"

// cached wraps the lookup result so "no active policy" is cached too.
type cached struct {
	p *domain.Policy
}

// Store reads and replaces the active policy.
type Store struct {
	repo      repository.Repository
	cache     *expirable.LRU[string, cached]
	mu        sync.Mutex // single writer for Replace
	clock     clock.Clock
	publisher events.Publisher
	metrics   *telemetry.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for CreatedAt.
func WithClock(c clock.Clock) Option { return func(s *Store) { s.clock = clock.OrSystem(c) } }

// WithPublisher sets where policy change events go.
func WithPublisher(p events.Publisher) Option { return func(s *Store) { s.publisher = p } }

// WithMetrics sets the metric instruments.
func WithMetrics(m *telemetry.Metrics) Option { return func(s *Store) { s.metrics = m } }

// NewStore returns a Store over repo. cacheTTL <= 0 disables caching.
func NewStore(repo repository.Repository, cacheTTL time.Duration, opts ...Option) *Store {
	s := &Store{repo: repo, clock: clock.System}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, cached](1, nil, cacheTTL)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active returns a copy of the active policy, or nil when none is active.
// The result may be up to the cache TTL old.
func (s *Store) Active(ctx context.Context) (*domain.Policy, error) {
	if s.cache != nil {
		if c, ok := s.cache.Get(activeKey); ok {
			return clone(c.p), nil
		}
	}
	p, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: get active: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(activeKey, cached{p: p})
	}
	return clone(p), nil
}

// Update replaces the active policy with a new version. Failures are returned so the operator can retry.
func (s *Store) Update(ctx context.Context, maxAddresses, blockDurationMinutes int, actor string) (*domain.Policy, error) {
	p := &domain.Policy{
		ID:                   uuid.New().String(),
		MaxAddresses:         maxAddresses,
		BlockDurationMinutes: blockDurationMinutes,
		CreatedBy:            actor,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPolicy, err.Error())
	}

	s.mu.Lock()
	p.CreatedAt = s.clock.Now().UTC()
	err := s.repo.Replace(ctx, p)
	s.invalidate()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("policy: replace: %w", err)
	}
	p.Active = true

	s.metrics.PolicyUpdated(ctx)
	logging.Ctx(ctx).Info().Str("policy_id", p.ID).Int("max_addresses", p.MaxAddresses).
		Int("block_minutes", p.BlockDurationMinutes).Str("actor", actor).Msg("security policy updated")
	events.Emit(ctx, s.publisher, events.ChangeEvent{Kind: events.KindPolicy, Op: events.OpCreated, ID: p.ID, At: p.CreatedAt})
	return clone(p), nil
}

// EnsureDefault installs a policy with the given values when none is active.
// Returns the active policy and whether it was created.
func (s *Store) EnsureDefault(ctx context.Context, maxAddresses, blockDurationMinutes int, actor string) (*domain.Policy, bool, error) {
	s.invalidate()
	p, err := s.Active(ctx)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		return p, false, nil
	}
	p, err = s.Update(ctx, maxAddresses, blockDurationMinutes, actor)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// History returns policy versions newest first. limit <= 0 returns all.
func (s *Store) History(ctx context.Context, limit int) ([]*domain.Policy, error) {
	list, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("policy: list: %w", err)
	}
	return list, nil
}

func (s *Store) invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func clone(p *domain.Policy) *domain.Policy {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
