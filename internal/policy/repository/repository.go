package repository

import (
	"context"

	"sessionguard/internal/policy/domain"
)

// Repository defines persistence for the append-only policy history.
type Repository interface {
	// GetActive returns the active policy, or nil if none is active.
	GetActive(ctx context.Context) (*domain.Policy, error)
	// Replace deactivates the current active policy and inserts p as active in one atomic step.
	Replace(ctx context.Context, p *domain.Policy) error
	// List returns policy versions newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.Policy, error)
}
