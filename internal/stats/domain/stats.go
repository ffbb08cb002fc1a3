package domain

import (
	"errors"
	"strings"
	"time"

	sessiondomain "sessionguard/internal/session/domain"
)

// Rollup is the per-user aggregate computed by the store in one grouped pass.
type Rollup struct {
	UserID            string
	Sessions          int
	DistinctAddresses int
	TotalMinutes      int
	LastSessionStart  *time.Time
	Online            bool // any open session with a heartbeat after the staleness cutoff
}

// Snapshot is the computed security view of one user. It is never persisted.
type Snapshot struct {
	UserID            string
	DisplayName       string
	PlanTier          string
	TotalSessions     int
	DistinctAddresses int
	TotalMinutes      int
	LastSessionStart  *time.Time
	Online            bool
	Blocked           bool
	// Degraded is set when part of the snapshot could not be read and zero values were substituted.
	Degraded bool
}

// Overview is the all-users dashboard payload.
type Overview struct {
	Users        []Snapshot
	OnlineUsers  int
	BlockedUsers int
	Degraded     bool
	GeneratedAt  time.Time
}

// Period is a calendar window for time totals.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ErrInvalidPeriod is returned for a period name other than today, week, month or year.
var ErrInvalidPeriod = errors.New("stats: invalid period")

// ParsePeriod parses a period name case-insensitively.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Bounds returns the half-open interval [from, to) of the calendar period containing now in loc.
// Weeks start on Monday.
func Bounds(p Period, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	var from, to time.Time
	switch p {
	case PeriodToday:
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
		to = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case PeriodWeek:
		offset := (int(local.Weekday()) + 6) % 7 // days since Monday
		from = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		to = time.Date(y, m, d-offset+7, 0, 0, 0, 0, loc)
	case PeriodMonth:
		from = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		to = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	case PeriodYear:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		to = time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return from, to, nil
}

// PeriodTotal is the minutes a user spent in sessions started within a period.
type PeriodTotal struct {
	Period   Period
	From     time.Time
	To       time.Time
	Minutes  int
	Degraded bool
}

// Recent is the live-monitoring session list.
type Recent struct {
	Sessions []*sessiondomain.Session
	Since    time.Time
	Degraded bool
}
