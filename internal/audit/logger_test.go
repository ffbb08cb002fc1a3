package audit

import (
	"context"
	"errors"
	"testing"

	"sessionguard/internal/audit/domain"
)

// mockAuditRepo implements audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return m.entries, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor)
	ctx := context.Background()

	logger.LogEvent(ctx, "operator-1", ActionUnblock, "block", "b-1", map[string]any{"user_id": "u-1"})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Actor != "operator-1" {
		t.Errorf("actor = %q, want %q", entry.Actor, "operator-1")
	}
	if entry.Action != ActionUnblock {
		t.Errorf("action = %q, want %q", entry.Action, ActionUnblock)
	}
	if entry.Resource != "block" || entry.ResourceID != "b-1" {
		t.Errorf("resource = %q/%q, want block/b-1", entry.Resource, entry.ResourceID)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != `{"user_id":"u-1"}` {
		t.Errorf("metadata = %q, want %q", entry.Metadata, `{"user_id":"u-1"}`)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NilIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "op", ActionUpdatePolicy, "policy", "p-1", nil)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
	if repo.entries[0].Metadata != "" {
		t.Errorf("metadata = %q, want empty", repo.entries[0].Metadata)
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	logger := NewLogger(repo, nil)

	// Best-effort: must not panic.
	logger.LogEvent(context.Background(), "op", ActionCreateBlock, "block", "b-1", nil)
}

func TestLogger_NilRepo(t *testing.T) {
	logger := NewLogger(nil, nil)
	logger.LogEvent(context.Background(), "op", ActionUnblock, "block", "b-1", nil)
	list, err := logger.List(context.Background(), 10)
	if err != nil || list != nil {
		t.Errorf("List = %v, %v; want nil, nil", list, err)
	}
}
