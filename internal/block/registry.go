// Package block holds the BlockRegistry. Expiry is lazy: every read compares blocked-until with
// the current time, and no code path caches a user's blocked state.
package block

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessionguard/internal/block/domain"
	"sessionguard/internal/block/repository"
	"sessionguard/internal/events"
	"sessionguard/internal/logging"
	"sessionguard/internal/platform/clock"
	"sessionguard/internal/telemetry"
)

var (
	// ErrBlockNotFound is returned when the block id is unknown.
	ErrBlockNotFound = errors.New("block: block not found")
	// ErrInvalidBlock is returned when Create is given no user or an expiry not in the future.
	ErrInvalidBlock = errors.New("block: invalid block")
)

// Spec describes a block to create.
type Spec struct {
	UserID        string
	Reason        string
	BlockedUntil  time.Time
	AddressCount  int
	SystemImposed bool
}

// Registry creates, queries and lifts blocks.
type Registry struct {
	repo      repository.Repository
	clock     clock.Clock
	publisher events.Publisher
	metrics   *telemetry.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(r *Registry) { r.clock = clock.OrSystem(c) } }

// WithPublisher sets where block change events go.
func WithPublisher(p events.Publisher) Option { return func(r *Registry) { r.publisher = p } }

// WithMetrics sets the metric instruments.
func WithMetrics(m *telemetry.Metrics) Option { return func(r *Registry) { r.metrics = m } }

// NewRegistry returns a Registry over repo.
func NewRegistry(repo repository.Repository, opts ...Option) *Registry {
	r := &Registry{repo: repo, clock: clock.System}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the registry's current time.
func (r *Registry) Now() time.Time { return r.clock.Now() }

// Create records a new active block and returns it.
func (r *Registry) Create(ctx context.Context, spec Spec) (*domain.Block, error) {
	now := r.clock.Now().UTC()
	userID := strings.TrimSpace(spec.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidBlock)
	}
	if !spec.BlockedUntil.After(now) {
		return nil, fmt.Errorf("%w: blocked-until must be in the future", ErrInvalidBlock)
	}
	b := &domain.Block{
		ID:            uuid.New().String(),
		UserID:        userID,
		Reason:        strings.TrimSpace(spec.Reason),
		BlockedUntil:  spec.BlockedUntil.UTC(),
		AddressCount:  spec.AddressCount,
		SystemImposed: spec.SystemImposed,
		Active:        true,
		CreatedAt:     now,
	}
	if err := r.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("block: create: %w", err)
	}
	r.metrics.BlockCreated(ctx, b.SystemImposed)
	logging.Ctx(ctx).Info().Str("block_id", b.ID).Str("user_id", userID).Str("reason", b.Reason).
		Time("blocked_until", b.BlockedUntil).Bool("system_imposed", b.SystemImposed).Msg("block created")
	events.Emit(ctx, r.publisher, events.ChangeEvent{Kind: events.KindBlock, Op: events.OpCreated, ID: b.ID, UserID: userID, At: now})
	return b, nil
}

// IsActive reports whether the user has a block in effect right now.
func (r *Registry) IsActive(ctx context.Context, userID string) (bool, error) {
	ok, err := r.repo.HasEffective(ctx, userID, r.clock.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("block: check active: %w", err)
	}
	return ok, nil
}

// Unblock lifts the block regardless of its expiry. Lifting an already lifted block succeeds.
func (r *Registry) Unblock(ctx context.Context, blockID, actor string) (*domain.Block, error) {
	b, err := r.repo.GetByID(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("block: get: %w", err)
	}
	if b == nil {
		return nil, ErrBlockNotFound
	}
	if !b.Active {
		return b, nil
	}
	now := r.clock.Now().UTC()
	lifted, err := r.repo.Deactivate(ctx, blockID, now, actor)
	if err != nil {
		return nil, fmt.Errorf("block: deactivate: %w", err)
	}
	b.Active = false
	if lifted {
		b.LiftedAt = &now
		b.LiftedBy = actor
		r.metrics.BlockLifted(ctx)
		logging.Ctx(ctx).Info().Str("block_id", blockID).Str("user_id", b.UserID).Str("actor", actor).Msg("block lifted")
		events.Emit(ctx, r.publisher, events.ChangeEvent{Kind: events.KindBlock, Op: events.OpUpdated, ID: blockID, UserID: b.UserID, At: now})
	}
	return b, nil
}

// Get returns the block or ErrBlockNotFound.
func (r *Registry) Get(ctx context.Context, blockID string) (*domain.Block, error) {
	b, err := r.repo.GetByID(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("block: get: %w", err)
	}
	if b == nil {
		return nil, ErrBlockNotFound
	}
	return b, nil
}

// ListActive returns blocks in effect right now, newest first. Expired rows are excluded even
// when their stored flag is still set.
func (r *Registry) ListActive(ctx context.Context) ([]*domain.Block, error) {
	list, err := r.repo.ListEffective(ctx, r.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("block: list active: %w", err)
	}
	return list, nil
}

// ListByUser returns the user's block history newest first.
func (r *Registry) ListByUser(ctx context.Context, userID string) ([]*domain.Block, error) {
	list, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("block: list by user: %w", err)
	}
	return list, nil
}
