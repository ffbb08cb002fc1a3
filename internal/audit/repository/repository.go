package repository

import (
	"context"

	"sessionguard/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// List returns entries newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}
