package domain

import "time"

// Session is one login-to-logout interval of a user from one origin address.
type Session struct {
	ID               string
	UserID           string
	OriginAddress    string
	ClientDescriptor string
	StartedAt        time.Time
	EndedAt          *time.Time // nil while open
	DurationMinutes  int        // whole minutes; never decreases
	Active           bool
	LastHeartbeatAt  time.Time
}

// ElapsedMinutes returns whole minutes between start and at, floored. Negative spans count as zero.
func ElapsedMinutes(start, at time.Time) int {
	d := at.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// IsOnline reports whether the session is open and has heartbeated within staleAfter of now.
func (s *Session) IsOnline(now time.Time, staleAfter time.Duration) bool {
	if s == nil || !s.Active {
		return false
	}
	return !s.LastHeartbeatAt.Before(now.Add(-staleAfter))
}
