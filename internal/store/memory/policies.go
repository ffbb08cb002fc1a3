package memory

import (
	"context"
	"sync"

	"sessionguard/internal/policy/domain"
)

// Policies stores the policy history. Replace holds the write lock across deactivate and insert.
type Policies struct {
	mu       sync.RWMutex
	versions []*domain.Policy // append order
	// Err, when set, is returned by every method. ReplaceErr only by Replace.
	Err        error
	ReplaceErr error
}

// NewPolicies returns an empty policy store.
func NewPolicies() *Policies {
	return &Policies{}
}

// GetActive returns the active policy, or nil.
func (m *Policies) GetActive(_ context.Context) (*domain.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := len(m.versions) - 1; i >= 0; i-- {
		if m.versions[i].Active {
			p := *m.versions[i]
			return &p, nil
		}
	}
	return nil, nil
}

// Replace deactivates the active version and appends p as active.
func (m *Policies) Replace(_ context.Context, p *domain.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	for _, v := range m.versions {
		v.Active = false
	}
	c := *p
	c.Active = true
	m.versions = append(m.versions, &c)
	p.Active = true
	return nil
}

// List returns versions newest first.
func (m *Policies) List(_ context.Context, limit int) ([]*domain.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*domain.Policy, 0, len(m.versions))
	for i := len(m.versions) - 1; i >= 0; i-- {
		p := *m.versions[i]
		out = append(out, &p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ActiveCount returns how many versions are marked active.
func (m *Policies) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, v := range m.versions {
		if v.Active {
			n++
		}
	}
	return n
}
