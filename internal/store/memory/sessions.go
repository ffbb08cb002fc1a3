package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	sessiondomain "sessionguard/internal/session/domain"
	statsdomain "sessionguard/internal/stats/domain"
)

// Sessions stores sessions and answers the stats aggregates over them.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*sessiondomain.Session
	// Err, when set, is returned by every method.
	Err error
}

// NewSessions returns an empty session store.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*sessiondomain.Session)}
}

func copySession(s *sessiondomain.Session) *sessiondomain.Session {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// GetByID returns the session for id, or nil if not found.
func (m *Sessions) GetByID(_ context.Context, id string) (*sessiondomain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

// Create stores a copy of s.
func (m *Sessions) Create(_ context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.byID[s.ID] = copySession(s)
	return nil
}

// Touch records a heartbeat on an open session.
func (m *Sessions) Touch(_ context.Context, id string, at time.Time, minutes int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	s, ok := m.byID[id]
	if !ok || !s.Active {
		return false, nil
	}
	if at.After(s.LastHeartbeatAt) {
		s.LastHeartbeatAt = at
	}
	s.DurationMinutes = max(s.DurationMinutes, minutes)
	return true, nil
}

// Close freezes an open session.
func (m *Sessions) Close(_ context.Context, id string, endedAt time.Time, minutes int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	s, ok := m.byID[id]
	if !ok || !s.Active {
		return false, nil
	}
	s.Active = false
	end := endedAt
	s.EndedAt = &end
	s.DurationMinutes = max(s.DurationMinutes, minutes)
	return true, nil
}

// ListByUser returns the user's sessions newest first.
func (m *Sessions) ListByUser(_ context.Context, userID string) ([]*sessiondomain.Session, error) {
	return m.filter(func(s *sessiondomain.Session) bool { return s.UserID == userID }, newestFirst)
}

// ListActive returns open sessions newest first, optionally for one user.
func (m *Sessions) ListActive(_ context.Context, userID string) ([]*sessiondomain.Session, error) {
	return m.filter(func(s *sessiondomain.Session) bool {
		return s.Active && (userID == "" || s.UserID == userID)
	}, newestFirst)
}

// ListStale returns open sessions whose last heartbeat is before cutoff.
func (m *Sessions) ListStale(_ context.Context, cutoff time.Time, limit int) ([]*sessiondomain.Session, error) {
	out, err := m.filter(func(s *sessiondomain.Session) bool {
		return s.Active && s.LastHeartbeatAt.Before(cutoff)
	}, func(a, b *sessiondomain.Session) bool {
		if !a.LastHeartbeatAt.Equal(b.LastHeartbeatAt) {
			return a.LastHeartbeatAt.Before(b.LastHeartbeatAt)
		}
		return a.ID < b.ID
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountDistinctAddresses counts distinct non-empty origin addresses for the user.
func (m *Sessions) CountDistinctAddresses(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	seen := make(map[string]struct{})
	for _, s := range m.byID {
		if s.UserID == userID && s.OriginAddress != "" {
			seen[s.OriginAddress] = struct{}{}
		}
	}
	return len(seen), nil
}

// UserRollup aggregates one user's sessions.
func (m *Sessions) UserRollup(ctx context.Context, userID string, onlineSince time.Time) (*statsdomain.Rollup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rollups := m.rollupsLocked(onlineSince, userID)
	if len(rollups) == 0 {
		return nil, nil
	}
	return rollups[0], nil
}

// Rollups aggregates every user's sessions, ordered by user id.
func (m *Sessions) Rollups(_ context.Context, onlineSince time.Time) ([]*statsdomain.Rollup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.rollupsLocked(onlineSince, ""), nil
}

func (m *Sessions) rollupsLocked(onlineSince time.Time, onlyUser string) []*statsdomain.Rollup {
	byUser := make(map[string]*statsdomain.Rollup)
	addrs := make(map[string]map[string]struct{})
	for _, s := range m.byID {
		if onlyUser != "" && s.UserID != onlyUser {
			continue
		}
		r, ok := byUser[s.UserID]
		if !ok {
			r = &statsdomain.Rollup{UserID: s.UserID}
			byUser[s.UserID] = r
			addrs[s.UserID] = make(map[string]struct{})
		}
		r.Sessions++
		r.TotalMinutes += s.DurationMinutes
		if s.OriginAddress != "" {
			addrs[s.UserID][s.OriginAddress] = struct{}{}
		}
		if r.LastSessionStart == nil || s.StartedAt.After(*r.LastSessionStart) {
			t := s.StartedAt
			r.LastSessionStart = &t
		}
		if s.Active && !s.LastHeartbeatAt.Before(onlineSince) {
			r.Online = true
		}
	}
	out := make([]*statsdomain.Rollup, 0, len(byUser))
	for id, r := range byUser {
		r.DistinctAddresses = len(addrs[id])
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// MinutesStartedBetween sums durations of the user's sessions started in [from, to).
func (m *Sessions) MinutesStartedBetween(_ context.Context, userID string, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	total := 0
	for _, s := range m.byID {
		if s.UserID == userID && !s.StartedAt.Before(from) && s.StartedAt.Before(to) {
			total += s.DurationMinutes
		}
	}
	return total, nil
}

// SessionsStartedSince returns sessions started at or after since, newest first.
func (m *Sessions) SessionsStartedSince(_ context.Context, since time.Time) ([]*sessiondomain.Session, error) {
	return m.filter(func(s *sessiondomain.Session) bool { return !s.StartedAt.Before(since) }, newestFirst)
}

func (m *Sessions) filter(keep func(*sessiondomain.Session) bool, less func(a, b *sessiondomain.Session) bool) ([]*sessiondomain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*sessiondomain.Session
	for _, s := range m.byID {
		if keep(s) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func newestFirst(a, b *sessiondomain.Session) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.After(b.StartedAt)
	}
	return a.ID < b.ID
}
