package repository

import (
	"context"
	"time"

	"sessionguard/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Touch records a heartbeat on an open session. Duration is raised to minutes, never lowered.
	// Returns false when the session is missing or already closed.
	Touch(ctx context.Context, id string, at time.Time, minutes int) (bool, error)
	// Close marks an open session closed at endedAt with duration max(recorded, minutes).
	// Returns false when the session is missing or already closed.
	Close(ctx context.Context, id string, endedAt time.Time, minutes int) (bool, error)
	// ListByUser returns the user's sessions newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// ListActive returns open sessions newest first, optionally filtered to one user.
	ListActive(ctx context.Context, userID string) ([]*domain.Session, error)
	// ListStale returns open sessions whose last heartbeat is before cutoff, oldest heartbeat first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Session, error)
	// CountDistinctAddresses returns the number of distinct origin addresses across all of the user's sessions.
	CountDistinctAddresses(ctx context.Context, userID string) (int, error)
}
