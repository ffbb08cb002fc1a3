package repository

import (
	"context"

	"sessionguard/internal/identity/domain"
)

// Directory resolves user ids to profiles. Unknown ids are absent from the result.
type Directory interface {
	Lookup(ctx context.Context, userIDs []string) (map[string]domain.Profile, error)
}
