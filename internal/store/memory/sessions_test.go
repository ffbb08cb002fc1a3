package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	sessiondomain "sessionguard/internal/session/domain"
)

var t0 = time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC)

func seedSessions(t *testing.T, m *Sessions, list ...*sessiondomain.Session) {
	t.Helper()
	for _, s := range list {
		if err := m.Create(context.Background(), s); err != nil {
			t.Fatalf("Create(%s): %v", s.ID, err)
		}
	}
}

func TestSessionsTouchAndClose(t *testing.T) {
	ctx := context.Background()
	m := NewSessions()
	seedSessions(t, m, &sessiondomain.Session{ID: "s1", UserID: "u1", StartedAt: t0, LastHeartbeatAt: t0, Active: true})

	ok, err := m.Touch(ctx, "s1", t0.Add(5*time.Minute), 5)
	if err != nil || !ok {
		t.Fatalf("Touch = %v, %v, want true, nil", ok, err)
	}
	ok, _ = m.Touch(ctx, "s1", t0.Add(time.Minute), 1)
	if !ok {
		t.Fatal("Touch on open session = false, want true")
	}
	s, _ := m.GetByID(ctx, "s1")
	if s.DurationMinutes != 5 {
		t.Errorf("DurationMinutes = %d, want 5", s.DurationMinutes)
	}
	if !s.LastHeartbeatAt.Equal(t0.Add(5 * time.Minute)) {
		t.Errorf("LastHeartbeatAt = %v, want %v", s.LastHeartbeatAt, t0.Add(5*time.Minute))
	}

	ok, err = m.Close(ctx, "s1", t0.Add(7*time.Minute), 7)
	if err != nil || !ok {
		t.Fatalf("Close = %v, %v, want true, nil", ok, err)
	}
	ok, _ = m.Close(ctx, "s1", t0.Add(9*time.Minute), 9)
	if ok {
		t.Error("second Close = true, want false")
	}
	ok, _ = m.Touch(ctx, "s1", t0.Add(10*time.Minute), 10)
	if ok {
		t.Error("Touch after Close = true, want false")
	}
	s, _ = m.GetByID(ctx, "s1")
	if s.Active || s.EndedAt == nil || s.DurationMinutes != 7 {
		t.Errorf("closed session = %+v, want inactive with duration 7", s)
	}

	missing, err := m.GetByID(ctx, "nope")
	if missing != nil || err != nil {
		t.Errorf("GetByID(missing) = %v, %v, want nil, nil", missing, err)
	}
}

func TestSessionsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewSessions()
	seedSessions(t, m, &sessiondomain.Session{ID: "s1", UserID: "u1", StartedAt: t0, Active: true})
	s, _ := m.GetByID(ctx, "s1")
	s.Active = false
	again, _ := m.GetByID(ctx, "s1")
	if !again.Active {
		t.Error("mutating a returned session changed the store")
	}
}

func TestSessionsRollups(t *testing.T) {
	ctx := context.Background()
	m := NewSessions()
	seedSessions(t, m,
		&sessiondomain.Session{ID: "a1", UserID: "alice", OriginAddress: "10.0.0.1", StartedAt: t0.Add(-3 * time.Hour), LastHeartbeatAt: t0.Add(-2 * time.Hour), DurationMinutes: 60},
		&sessiondomain.Session{ID: "a2", UserID: "alice", OriginAddress: "10.0.0.1", StartedAt: t0.Add(-time.Hour), LastHeartbeatAt: t0.Add(-time.Minute), DurationMinutes: 59, Active: true},
		&sessiondomain.Session{ID: "a3", UserID: "alice", OriginAddress: "10.0.0.2", StartedAt: t0.Add(-30 * time.Minute), LastHeartbeatAt: t0.Add(-30 * time.Minute), DurationMinutes: 0},
		&sessiondomain.Session{ID: "b1", UserID: "bob", StartedAt: t0.Add(-2 * time.Hour), LastHeartbeatAt: t0.Add(-time.Hour), DurationMinutes: 10, Active: true},
	)

	rollups, err := m.Rollups(ctx, t0.Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("Rollups: %v", err)
	}
	if len(rollups) != 2 {
		t.Fatalf("len(rollups) = %d, want 2", len(rollups))
	}
	alice, bob := rollups[0], rollups[1]
	if alice.UserID != "alice" || bob.UserID != "bob" {
		t.Fatalf("order = %s, %s, want alice, bob", alice.UserID, bob.UserID)
	}
	if alice.Sessions != 3 || alice.DistinctAddresses != 2 || alice.TotalMinutes != 119 || !alice.Online {
		t.Errorf("alice = %+v", alice)
	}
	if alice.LastSessionStart == nil || !alice.LastSessionStart.Equal(t0.Add(-30*time.Minute)) {
		t.Errorf("alice.LastSessionStart = %v, want %v", alice.LastSessionStart, t0.Add(-30*time.Minute))
	}
	if bob.DistinctAddresses != 0 || bob.Online {
		t.Errorf("bob = %+v, want no addresses and offline", bob)
	}

	one, err := m.UserRollup(ctx, "bob", t0.Add(-10*time.Minute))
	if err != nil || one == nil || one.Sessions != 1 {
		t.Errorf("UserRollup(bob) = %+v, %v", one, err)
	}
	none, err := m.UserRollup(ctx, "carol", t0)
	if none != nil || err != nil {
		t.Errorf("UserRollup(carol) = %v, %v, want nil, nil", none, err)
	}

	n, _ := m.CountDistinctAddresses(ctx, "alice")
	if n != 2 {
		t.Errorf("CountDistinctAddresses(alice) = %d, want 2", n)
	}
	minutes, _ := m.MinutesStartedBetween(ctx, "alice", t0.Add(-time.Hour), t0)
	if minutes != 59 {
		t.Errorf("MinutesStartedBetween = %d, want 59", minutes)
	}
	stale, _ := m.ListStale(ctx, t0.Add(-10*time.Minute), 0)
	if len(stale) != 1 || stale[0].ID != "b1" {
		t.Errorf("ListStale = %v, want [b1]", stale)
	}
	recent, _ := m.SessionsStartedSince(ctx, t0.Add(-time.Hour))
	if len(recent) != 2 || recent[0].ID != "a3" || recent[1].ID != "a2" {
		t.Errorf("SessionsStartedSince = %v, want [a3 a2]", recent)
	}
}

func TestSessionsErr(t *testing.T) {
	boom := errors.New("boom")
	m := NewSessions()
	m.Err = boom
	if _, err := m.Rollups(context.Background(), t0); !errors.Is(err, boom) {
		t.Errorf("Rollups err = %v, want %v", err, boom)
	}
	if _, err := m.ListActive(context.Background(), ""); !errors.Is(err, boom) {
		t.Errorf("ListActive err = %v, want %v", err, boom)
	}
}
