package interceptors

import (
	"context"
	"testing"
)

func TestWithIdentity_SetsValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "ops@example.com", []string{"operator"})

	subject, ok := GetSubject(ctx)
	if !ok {
		t.Fatal("GetSubject should return true")
	}
	if subject != "ops@example.com" {
		t.Errorf("subject = %q, want %q", subject, "ops@example.com")
	}
	roles := GetRoles(ctx)
	if len(roles) != 1 || roles[0] != "operator" {
		t.Errorf("roles = %v, want [operator]", roles)
	}
}

func TestGetSubject_NotSet(t *testing.T) {
	ctx := context.Background()
	if subject, ok := GetSubject(ctx); ok || subject != "" {
		t.Errorf("GetSubject = %q, %v; want \"\", false", subject, ok)
	}
	if roles := GetRoles(ctx); roles != nil {
		t.Errorf("GetRoles = %v, want nil", roles)
	}
}
