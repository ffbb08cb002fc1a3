package repository

import (
	"context"
	"time"

	sessiondomain "sessionguard/internal/session/domain"
	"sessionguard/internal/stats/domain"
)

// Repository computes session aggregates in the store rather than per user in Go.
type Repository interface {
	// UserRollup aggregates one user's sessions. Returns nil when the user has none.
	UserRollup(ctx context.Context, userID string, onlineSince time.Time) (*domain.Rollup, error)
	// Rollups aggregates every user's sessions with a single grouped query, ordered by user id.
	Rollups(ctx context.Context, onlineSince time.Time) ([]*domain.Rollup, error)
	// MinutesStartedBetween sums duration of the user's sessions with start in [from, to).
	MinutesStartedBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	// SessionsStartedSince returns sessions with start >= since, newest first.
	SessionsStartedSince(ctx context.Context, since time.Time) ([]*sessiondomain.Session, error)
}
