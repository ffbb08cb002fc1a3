package memory

import (
	"context"
	"sync"

	"sessionguard/internal/audit/domain"
)

// AuditLogs stores audit entries in append order.
type AuditLogs struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
}

// NewAuditLogs returns an empty audit store.
func NewAuditLogs() *AuditLogs {
	return &AuditLogs{}
}

// Create appends a copy of a.
func (m *AuditLogs) Create(_ context.Context, a *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	m.entries = append(m.entries, &c)
	return nil
}

// List returns entries newest first.
func (m *AuditLogs) List(_ context.Context, limit int) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.AuditLog, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		c := *m.entries[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
