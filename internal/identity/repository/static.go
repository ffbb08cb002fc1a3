package repository

import (
	"context"
	"sync"

	"sessionguard/internal/identity/domain"
)

// StaticDirectory is an in-memory Directory for development mode and tests.
type StaticDirectory struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewStaticDirectory returns a Directory holding profiles.
func NewStaticDirectory(profiles ...domain.Profile) *StaticDirectory {
	d := &StaticDirectory{profiles: make(map[string]domain.Profile, len(profiles))}
	for _, p := range profiles {
		d.profiles[p.UserID] = p
	}
	return d
}

// Put adds or replaces a profile.
func (d *StaticDirectory) Put(p domain.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.UserID] = p
}

// Lookup returns the known profiles among userIDs.
func (d *StaticDirectory) Lookup(_ context.Context, userIDs []string) (map[string]domain.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := d.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
