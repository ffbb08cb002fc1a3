package domain

import (
	"testing"
	"time"
)

func TestBlock_IsEffective(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name      string
		b         *Block
		want      bool
		wantState string
	}{
		{"active future", &Block{Active: true, BlockedUntil: now.Add(time.Minute)}, true, "active"},
		{"active expired", &Block{Active: true, BlockedUntil: now.Add(-time.Minute)}, false, "expired"},
		{"expires exactly now", &Block{Active: true, BlockedUntil: now}, false, "expired"},
		{"lifted future", &Block{Active: false, BlockedUntil: now.Add(time.Hour)}, false, "lifted"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.b.IsEffective(now); got != tc.want {
				t.Errorf("IsEffective = %v, want %v", got, tc.want)
			}
			if got := tc.b.State(now); got != tc.wantState {
				t.Errorf("State = %q, want %q", got, tc.wantState)
			}
		})
	}
	var nilBlock *Block
	if nilBlock.IsEffective(now) {
		t.Error("nil block should not be effective")
	}
}
