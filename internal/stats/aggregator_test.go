package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"sessionguard/internal/block"
	identitydomain "sessionguard/internal/identity/domain"
	identityrepo "sessionguard/internal/identity/repository"
	"sessionguard/internal/platform/clock"
	"sessionguard/internal/session/tracker"
	"sessionguard/internal/stats/domain"
	"sessionguard/internal/store/memory"
)

// Tuesday afternoon, UTC.
var t0 = time.Date(2024, 9, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	clk       *clock.Fake
	sessions  *memory.Sessions
	blockRepo *memory.Blocks
	tracker   *tracker.Tracker
	blocks    *block.Registry
	agg       *Aggregator
}

func newFixture(opts ...Option) *fixture {
	clk := clock.NewFake(t0)
	sessions := memory.NewSessions()
	blockRepo := memory.NewBlocks()
	blocks := block.NewRegistry(blockRepo, block.WithClock(clk))
	base := []Option{WithClock(clk), WithStaleAfter(10 * time.Minute)}
	return &fixture{
		clk:       clk,
		sessions:  sessions,
		blockRepo: blockRepo,
		tracker:   tracker.New(sessions, tracker.WithClock(clk)),
		blocks:    blocks,
		agg:       NewAggregator(sessions, blocks, append(base, opts...)...),
	}
}

// session opens a session at the current fake time and closes it after minutes.
func (f *fixture) session(t *testing.T, user, addr string, minutes int) string {
	t.Helper()
	ctx := context.Background()
	id, err := f.tracker.OpenSession(ctx, user, addr, "")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	f.clk.Advance(time.Duration(minutes) * time.Minute)
	if _, err := f.tracker.CloseSession(ctx, id); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	return id
}

func TestAllUsersSnapshot_Empty(t *testing.T) {
	f := newFixture()
	ov := f.agg.AllUsersSnapshot(context.Background())
	if ov.Degraded {
		t.Error("empty store should not be degraded")
	}
	if ov.Users == nil || len(ov.Users) != 0 {
		t.Errorf("Users = %v, want empty non-nil list", ov.Users)
	}
}

func TestPeriodTime_ScenarioE(t *testing.T) {
	f := newFixture()
	f.clk.Set(time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC))
	f.session(t, "u1", "10.0.0.1", 10)
	f.clk.Advance(time.Hour)
	f.session(t, "u1", "10.0.0.2", 20)

	total, err := f.agg.PeriodTime(context.Background(), "u1", domain.PeriodToday)
	if err != nil {
		t.Fatalf("PeriodTime: %v", err)
	}
	if total.Minutes != 30 {
		t.Errorf("today minutes = %d, want 30", total.Minutes)
	}
	if total.Degraded {
		t.Error("should not be degraded")
	}

	ov := f.agg.AllUsersSnapshot(context.Background())
	if len(ov.Users) != 1 || ov.Users[0].TotalSessions != 2 || ov.Users[0].TotalMinutes != 30 {
		t.Errorf("overview users = %+v, want one user with 2 sessions and 30 minutes", ov.Users)
	}
}

func TestPeriodTime_Boundaries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// Sunday before the current week, then Monday 00:00 of the current week.
	f.clk.Set(time.Date(2024, 9, 8, 23, 0, 0, 0, time.UTC))
	f.session(t, "u1", "10.0.0.1", 15)
	f.clk.Set(time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC))
	f.session(t, "u1", "10.0.0.1", 25)
	f.clk.Set(t0)

	testCases := []struct {
		period domain.Period
		want   int
	}{
		{domain.PeriodToday, 0},
		{domain.PeriodWeek, 25},
		{domain.PeriodMonth, 40},
		{domain.PeriodYear, 40},
	}
	for _, tc := range testCases {
		total, err := f.agg.PeriodTime(ctx, "u1", tc.period)
		if err != nil {
			t.Fatalf("PeriodTime(%s): %v", tc.period, err)
		}
		if total.Minutes != tc.want {
			t.Errorf("PeriodTime(%s) = %d, want %d", tc.period, total.Minutes, tc.want)
		}
	}
	if _, err := f.agg.PeriodTime(ctx, "u1", "decade"); !errors.Is(err, domain.ErrInvalidPeriod) {
		t.Errorf("invalid period error = %v", err)
	}
}

func TestPeriodTime_ReferenceZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	f := newFixture(WithLocation(tokyo))
	// 2024-09-09 16:00 UTC is 2024-09-10 01:00 in Tokyo: "today" there, "yesterday" in UTC.
	f.clk.Set(time.Date(2024, 9, 9, 16, 0, 0, 0, time.UTC))
	f.session(t, "u1", "10.0.0.1", 12)
	f.clk.Set(time.Date(2024, 9, 10, 2, 0, 0, 0, time.UTC))

	total, err := f.agg.PeriodTime(context.Background(), "u1", domain.PeriodToday)
	if err != nil {
		t.Fatalf("PeriodTime: %v", err)
	}
	if total.Minutes != 12 {
		t.Errorf("Tokyo today = %d, want 12", total.Minutes)
	}
}

func TestUserSnapshot(t *testing.T) {
	dir := identityrepo.NewStaticDirectory(identitydomain.Profile{UserID: "u1", DisplayName: "Ada", PlanTier: "gold"})
	f := newFixture(WithDirectory(dir))
	ctx := context.Background()

	f.session(t, "u1", "10.0.0.1", 10)
	f.session(t, "u1", "10.0.0.1", 5)
	lastStart := f.clk.Now()
	if _, err := f.tracker.OpenSession(ctx, "u1", "10.0.0.2", ""); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if _, err := f.blocks.Create(ctx, block.Spec{UserID: "u1", BlockedUntil: f.clk.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Create block: %v", err)
	}

	snap := f.agg.UserSnapshot(ctx, "u1")
	if snap.Degraded {
		t.Error("unexpected degraded snapshot")
	}
	if snap.TotalSessions != 3 || snap.DistinctAddresses != 2 || snap.TotalMinutes != 15 {
		t.Errorf("snapshot counts = %d/%d/%d, want 3/2/15", snap.TotalSessions, snap.DistinctAddresses, snap.TotalMinutes)
	}
	if snap.LastSessionStart == nil || !snap.LastSessionStart.Equal(lastStart) {
		t.Errorf("LastSessionStart = %v, want %v", snap.LastSessionStart, lastStart)
	}
	if !snap.Online || !snap.Blocked {
		t.Errorf("online=%v blocked=%v, want both true", snap.Online, snap.Blocked)
	}
	if snap.DisplayName != "Ada" || snap.PlanTier != "gold" {
		t.Errorf("profile = %q/%q", snap.DisplayName, snap.PlanTier)
	}

	// Without heartbeats the open session goes stale and the user drops offline.
	f.clk.Advance(11 * time.Minute)
	if f.agg.UserSnapshot(ctx, "u1").Online {
		t.Error("user with only a stale session should not be online")
	}
	// Blocked state follows lazy expiry.
	f.clk.Advance(time.Hour)
	if f.agg.UserSnapshot(ctx, "u1").Blocked {
		t.Error("expired block should not count")
	}
}

func TestUserSnapshot_UnknownUser(t *testing.T) {
	f := newFixture()
	snap := f.agg.UserSnapshot(context.Background(), "nobody")
	if snap.Degraded || snap.TotalSessions != 0 || snap.LastSessionStart != nil {
		t.Errorf("snapshot = %+v, want zero values", snap)
	}
}

func TestAllUsersSnapshot_SetBased(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.session(t, "u2", "10.0.0.1", 10)
	f.session(t, "u1", "10.0.0.2", 20)
	if _, err := f.tracker.OpenSession(ctx, "u1", "10.0.0.3", ""); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	// A manually blocked user with no sessions still appears.
	if _, err := f.blocks.Create(ctx, block.Spec{UserID: "u3", BlockedUntil: f.clk.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Create block: %v", err)
	}

	ov := f.agg.AllUsersSnapshot(ctx)
	if len(ov.Users) != 3 {
		t.Fatalf("users = %d, want 3", len(ov.Users))
	}
	if ov.Users[0].UserID != "u1" || ov.Users[1].UserID != "u2" || ov.Users[2].UserID != "u3" {
		t.Errorf("users not ordered by id")
	}
	if ov.OnlineUsers != 1 || ov.BlockedUsers != 1 {
		t.Errorf("online=%d blocked=%d, want 1/1", ov.OnlineUsers, ov.BlockedUsers)
	}
	if !ov.Users[2].Blocked || ov.Users[2].TotalSessions != 0 {
		t.Errorf("u3 = %+v, want blocked with no sessions", ov.Users[2])
	}
	if !ov.GeneratedAt.Equal(f.clk.Now()) {
		t.Errorf("GeneratedAt = %v, want %v", ov.GeneratedAt, f.clk.Now())
	}
}

func TestRecentSessions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.session(t, "u1", "10.0.0.1", 1)
	f.clk.Advance(25 * time.Hour)
	mid := f.session(t, "u1", "10.0.0.2", 1)
	newest := f.session(t, "u2", "10.0.0.3", 1)

	rec := f.agg.RecentSessions(ctx, 24*time.Hour)
	if rec.Degraded {
		t.Error("unexpected degraded result")
	}
	if len(rec.Sessions) != 2 || rec.Sessions[0].ID != newest || rec.Sessions[1].ID != mid {
		t.Errorf("RecentSessions = %d sessions, want [newest, mid]", len(rec.Sessions))
	}
	if def := f.agg.RecentSessions(ctx, 0); len(def.Sessions) != 2 {
		t.Errorf("default window returned %d sessions, want 2", len(def.Sessions))
	}
}

type failingDirectory struct{}

func (failingDirectory) Lookup(context.Context, []string) (map[string]identitydomain.Profile, error) {
	return nil, errors.New("identity unavailable")
}

func TestDegradesOnStoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.session(t, "u1", "10.0.0.1", 10)
	f.sessions.Err = errors.New("db down")

	snap := f.agg.UserSnapshot(ctx, "u1")
	if !snap.Degraded || snap.TotalSessions != 0 {
		t.Errorf("snapshot = %+v, want degraded zero values", snap)
	}
	ov := f.agg.AllUsersSnapshot(ctx)
	if !ov.Degraded || len(ov.Users) != 0 {
		t.Errorf("overview degraded=%v users=%d, want degraded empty", ov.Degraded, len(ov.Users))
	}
	total, err := f.agg.PeriodTime(ctx, "u1", domain.PeriodToday)
	if err != nil {
		t.Fatalf("PeriodTime should not fail on store error: %v", err)
	}
	if !total.Degraded || total.Minutes != 0 {
		t.Errorf("period total = %+v, want degraded zero", total)
	}
	rec := f.agg.RecentSessions(ctx, time.Hour)
	if !rec.Degraded || rec.Sessions == nil {
		t.Errorf("recent = %+v, want degraded empty list", rec)
	}

	f.sessions.Err = nil
	f.blockRepo.Err = errors.New("blocks down")
	snap = f.agg.UserSnapshot(ctx, "u1")
	if !snap.Degraded || snap.Blocked || snap.TotalSessions != 1 {
		t.Errorf("snapshot with block failure = %+v", snap)
	}
}

func TestDegradesOnIdentityFailure(t *testing.T) {
	f := newFixture(WithDirectory(failingDirectory{}))
	f.session(t, "u1", "10.0.0.1", 10)
	snap := f.agg.UserSnapshot(context.Background(), "u1")
	if !snap.Degraded || snap.TotalSessions != 1 {
		t.Errorf("snapshot = %+v, want counts with degraded flag", snap)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	f := newFixture(WithBreaker(BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour}))
	ctx := context.Background()
	f.sessions.Err = errors.New("db down")
	for i := 0; i < 2; i++ {
		f.agg.RecentSessions(ctx, time.Hour)
	}
	f.sessions.Err = nil
	// Open breaker: the store is healthy again but calls are short-circuited.
	if rec := f.agg.RecentSessions(ctx, time.Hour); !rec.Degraded {
		t.Error("breaker should be open and serve degraded results")
	}
}
