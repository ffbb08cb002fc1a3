package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"today", "WEEK", " month ", "year"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q): %v", s, err)
		}
	}
	if _, err := ParsePeriod("decade"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("ParsePeriod(decade) error = %v, want ErrInvalidPeriod", err)
	}
}

func TestBounds(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	// Sunday 2024-03-10 23:30 UTC is Monday 2024-03-11 00:30 in Berlin.
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		p        Period
		loc      *time.Location
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"today utc", PeriodToday, time.UTC,
			time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"today berlin", PeriodToday, berlin,
			time.Date(2024, 3, 11, 0, 0, 0, 0, berlin), time.Date(2024, 3, 12, 0, 0, 0, 0, berlin)},
		{"week utc starts monday", PeriodWeek, time.UTC,
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"week berlin", PeriodWeek, berlin,
			time.Date(2024, 3, 11, 0, 0, 0, 0, berlin), time.Date(2024, 3, 18, 0, 0, 0, 0, berlin)},
		{"month", PeriodMonth, time.UTC,
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"year", PeriodYear, time.UTC,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"nil location is utc", PeriodToday, nil,
			time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, err := Bounds(tc.p, now, tc.loc)
			if err != nil {
				t.Fatalf("Bounds: %v", err)
			}
			if !from.Equal(tc.wantFrom) {
				t.Errorf("from = %v, want %v", from, tc.wantFrom)
			}
			if !to.Equal(tc.wantTo) {
				t.Errorf("to = %v, want %v", to, tc.wantTo)
			}
		})
	}
}

func TestBounds_Invalid(t *testing.T) {
	if _, _, err := Bounds("fortnight", time.Now(), time.UTC); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("error = %v, want ErrInvalidPeriod", err)
	}
}
