package policy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sessionguard/internal/policy/domain"
	"sessionguard/internal/store/memory"
)

// countingRepo counts GetActive calls to observe caching.
type countingRepo struct {
	*memory.Policies
	mu    sync.Mutex
	reads int
}

func (c *countingRepo) GetActive(ctx context.Context) (*domain.Policy, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Policies.GetActive(ctx)
}

func TestStore_UpdateKeepsExactlyOneActive(t *testing.T) {
	repo := memory.NewPolicies()
	s := NewStore(repo, 0)
	ctx := context.Background()

	for i, max := range []int{3, 5, 2} {
		p, err := s.Update(ctx, max, 60, "operator")
		if err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
		if !p.Active || p.MaxAddresses != max {
			t.Errorf("Update %d returned %+v", i, p)
		}
		if n := repo.ActiveCount(); n != 1 {
			t.Fatalf("after update %d: %d active policies, want 1", i, n)
		}
	}
	hist, err := s.History(ctx, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 || hist[0].MaxAddresses != 2 || !hist[0].Active || hist[2].Active {
		t.Errorf("history not newest-first with only the latest active")
	}
	limited, _ := s.History(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("History(2) = %d, want 2", len(limited))
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	repo := memory.NewPolicies()
	s := NewStore(repo, time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := s.Update(ctx, n, 10, "op"); err != nil {
				t.Errorf("Update: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if n := repo.ActiveCount(); n != 1 {
		t.Errorf("%d active policies after concurrent updates, want 1", n)
	}
}

func TestStore_UpdateValidation(t *testing.T) {
	s := NewStore(memory.NewPolicies(), 0)
	for _, tc := range []struct{ max, minutes int }{{0, 60}, {3, 0}, {-1, -1}} {
		if _, err := s.Update(context.Background(), tc.max, tc.minutes, "op"); !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("Update(%d, %d) error = %v, want ErrInvalidPolicy", tc.max, tc.minutes, err)
		}
	}
}

func TestStore_UpdateFailureSurfaces(t *testing.T) {
	repo := memory.NewPolicies()
	s := NewStore(repo, time.Minute)
	ctx := context.Background()
	if _, err := s.Update(ctx, 3, 60, "op"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	repo.ReplaceErr = errors.New("tx aborted")
	if _, err := s.Update(ctx, 4, 60, "op"); !errors.Is(err, repo.ReplaceErr) {
		t.Fatalf("Update error = %v, want replace error", err)
	}
	p, err := s.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if p == nil || p.MaxAddresses != 3 {
		t.Errorf("active after failed update = %+v, want previous policy", p)
	}
}

func TestStore_ActiveCaches(t *testing.T) {
	repo := &countingRepo{Policies: memory.NewPolicies()}
	s := NewStore(repo, time.Minute)
	ctx := context.Background()

	// No active policy is cached too.
	for i := 0; i < 3; i++ {
		p, err := s.Active(ctx)
		if err != nil || p != nil {
			t.Fatalf("Active = %v, %v; want nil, nil", p, err)
		}
	}
	if repo.reads != 1 {
		t.Errorf("reads = %d, want 1", repo.reads)
	}

	if _, err := s.Update(ctx, 3, 60, "op"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	p, _ := s.Active(ctx)
	if p == nil || p.MaxAddresses != 3 {
		t.Fatalf("Active after update = %+v, want max 3", p)
	}
	if repo.reads != 2 {
		t.Errorf("reads = %d, want 2 (update invalidates cache)", repo.reads)
	}

	// Callers get copies.
	p.MaxAddresses = 99
	again, _ := s.Active(ctx)
	if again.MaxAddresses != 3 {
		t.Error("mutating a returned policy changed the cached value")
	}
}

func TestStore_NoCache(t *testing.T) {
	repo := &countingRepo{Policies: memory.NewPolicies()}
	s := NewStore(repo, 0)
	for i := 0; i < 3; i++ {
		_, _ = s.Active(context.Background())
	}
	if repo.reads != 3 {
		t.Errorf("reads = %d, want 3", repo.reads)
	}
}

func TestStore_EnsureDefault(t *testing.T) {
	s := NewStore(memory.NewPolicies(), time.Minute)
	ctx := context.Background()

	p, created, err := s.EnsureDefault(ctx, 3, 60, "seed")
	if err != nil || !created || p.MaxAddresses != 3 {
		t.Fatalf("EnsureDefault = %+v, %v, %v", p, created, err)
	}
	if _, err := s.Update(ctx, 5, 30, "op"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	p, created, err = s.EnsureDefault(ctx, 3, 60, "seed")
	if err != nil || created || p.MaxAddresses != 5 {
		t.Errorf("EnsureDefault on existing = %+v, %v, %v; want existing policy", p, created, err)
	}
}

func TestStore_ActiveError(t *testing.T) {
	repo := memory.NewPolicies()
	repo.Err = errors.New("db down")
	s := NewStore(repo, time.Minute)
	if _, err := s.Active(context.Background()); !errors.Is(err, repo.Err) {
		t.Errorf("Active error = %v, want db error", err)
	}
}
