package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"financeiro/internal/core"
	"financeiro/internal/sheets"
)

var (
	_ sheets.LedgerWriter  = (*Store)(nil)
	_ sheets.LedgerDeleter = (*Store)(nil)
)

// Store is an in-process ledger used by tests and local runs without Google credentials.
type Store struct {
	mu    sync.Mutex
	items map[int64]core.FinancialTransaction
}

func New() *Store {
	return &Store{items: make(map[int64]core.FinancialTransaction)}
}

// UpsertTransaction stores the row and returns a synthetic row reference.
func (s *Store) UpsertTransaction(_ context.Context, t core.FinancialTransaction) (string, error) {
	if t.ID == 0 {
		return "", fmt.Errorf("transaction has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.ID] = t
	return fmt.Sprintf("mem:%d", t.ID), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Get returns the mirrored row for id.
func (s *Store) Get(id int64) (core.FinancialTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	return t, ok
}

// Rows returns every mirrored row ordered by id.
func (s *Store) Rows() []core.FinancialTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FinancialTransaction, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
