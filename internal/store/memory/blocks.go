package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sessionguard/internal/block/domain"
)

// Blocks stores security blocks.
type Blocks struct {
	mu   sync.RWMutex
	byID map[string]*domain.Block
	// Err, when set, is returned by every method.
	Err error
}

// NewBlocks returns an empty block store.
func NewBlocks() *Blocks {
	return &Blocks{byID: make(map[string]*domain.Block)}
}

func copyBlock(b *domain.Block) *domain.Block {
	c := *b
	if b.LiftedAt != nil {
		t := *b.LiftedAt
		c.LiftedAt = &t
	}
	return &c
}

// GetByID returns the block for id, or nil if not found.
func (m *Blocks) GetByID(_ context.Context, id string) (*domain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	b, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return copyBlock(b), nil
}

// Create stores a copy of b.
func (m *Blocks) Create(_ context.Context, b *domain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.byID[b.ID] = copyBlock(b)
	return nil
}

// Deactivate lifts an active block.
func (m *Blocks) Deactivate(_ context.Context, id string, at time.Time, by string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	b, ok := m.byID[id]
	if !ok || !b.Active {
		return false, nil
	}
	b.Active = false
	lifted := at
	b.LiftedAt = &lifted
	b.LiftedBy = by
	return true, nil
}

// HasEffective reports whether the user has an unexpired active block.
func (m *Blocks) HasEffective(_ context.Context, userID string, now time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	for _, b := range m.byID {
		if b.UserID == userID && b.IsEffective(now) {
			return true, nil
		}
	}
	return false, nil
}

// ListEffective returns unexpired active blocks, newest first.
func (m *Blocks) ListEffective(_ context.Context, now time.Time) ([]*domain.Block, error) {
	return m.filter(func(b *domain.Block) bool { return b.IsEffective(now) })
}

// ListByUser returns the user's blocks newest first.
func (m *Blocks) ListByUser(_ context.Context, userID string) ([]*domain.Block, error) {
	return m.filter(func(b *domain.Block) bool { return b.UserID == userID })
}

// SetActive overwrites the stored active flag. Tests use it to build rows in any state.
func (m *Blocks) SetActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.byID[id]; ok {
		b.Active = active
	}
}

func (m *Blocks) filter(keep func(*domain.Block) bool) ([]*domain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*domain.Block
	for _, b := range m.byID {
		if keep(b) {
			out = append(out, copyBlock(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
