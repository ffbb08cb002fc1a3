package repository

import (
	"context"
	"time"

	"sessionguard/internal/block/domain"
)

// Repository defines persistence for security blocks. Effective-state filters take now explicitly
// so every read applies the expiry check itself.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Block, error)
	Create(ctx context.Context, b *domain.Block) error
	// Deactivate clears the active flag. Returns false when the block is missing or already lifted.
	Deactivate(ctx context.Context, id string, at time.Time, by string) (bool, error)
	// HasEffective reports whether the user has a block with active=true and blocked_until > now.
	HasEffective(ctx context.Context, userID string, now time.Time) (bool, error)
	// ListEffective returns blocks in effect at now, newest first.
	ListEffective(ctx context.Context, now time.Time) ([]*domain.Block, error)
	// ListByUser returns every block for the user, newest first, including lifted and expired rows.
	ListByUser(ctx context.Context, userID string) ([]*domain.Block, error)
}
