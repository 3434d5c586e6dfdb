package storage

import (
	"context"
	"sync"

	"tally/internal/core"
)

// MemoryStore keeps the snapshot in memory. Used by tests and for
// ephemeral runs where persistence is not wanted.
type MemoryStore struct {
	mu    sync.Mutex
	snap  core.Snapshot
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = core.Snapshot{
		Transactions:  append([]core.Transaction(nil), snap.Transactions...),
		Rules:         append([]core.CategoryRule(nil), snap.Rules...),
		MonthlyBudget: snap.MonthlyBudget,
		LastSaved:     snap.LastSaved,
	}
	s.saves++
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Snapshot{
		Transactions:  append([]core.Transaction(nil), s.snap.Transactions...),
		Rules:         append([]core.CategoryRule(nil), s.snap.Rules...),
		MonthlyBudget: s.snap.MonthlyBudget,
		LastSaved:     s.snap.LastSaved,
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Saves returns how many times Save was called. Test hook.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
