package repository

import (
	"context"
	"testing"

	"sessionguard/internal/identity/domain"
)

func TestStaticDirectory_Lookup(t *testing.T) {
	d := NewStaticDirectory(domain.Profile{UserID: "u1", DisplayName: "Ada", PlanTier: "gold"})
	d.Put(domain.Profile{UserID: "u2", DisplayName: "Lin", PlanTier: "free"})

	got, err := d.Lookup(context.Background(), []string{"u1", "u2", "missing"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got["u1"].PlanTier != "gold" {
		t.Errorf("u1 plan = %q, want gold", got["u1"].PlanTier)
	}
	if _, ok := got["missing"]; ok {
		t.Error("unknown id should be absent")
	}
}

func TestNewPostgresDirectory_RejectsBadTable(t *testing.T) {
	for _, table := range []string{"", "users; drop table x", "1abc", "a.b.c"} {
		if _, err := NewPostgresDirectory(nil, table); err == nil {
			t.Errorf("NewPostgresDirectory(%q) should fail", table)
		}
	}
	if _, err := NewPostgresDirectory(nil, "public.user_profiles"); err != nil {
		t.Errorf("NewPostgresDirectory(public.user_profiles): %v", err)
	}
}
