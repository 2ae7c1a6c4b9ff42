// Package memory is an in-process ExpenseRepository used as the default
// backend and in tests. Data does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spendlog/internal/core"
)

type entry struct {
	seq     int64
	expense core.Expense
}

type Store struct {
	mu      sync.Mutex
	nextSeq int64
	items   map[string]*entry
}

func New() *Store {
	return &Store{items: make(map[string]*entry)}
}

// Insert stores the expense; ids must be unique.
func (s *Store) Insert(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[e.ID]; ok {
		return fmt.Errorf("insert expense: duplicate id %q", e.ID)
	}
	s.nextSeq++
	s.items[e.ID] = &entry{seq: s.nextSeq, expense: e}
	return nil
}

func (s *Store) ListByDevice(_ context.Context, deviceID string) ([]core.Expense, error) {
	s.mu.Lock()
	matched := make([]*entry, 0)
	for _, it := range s.items {
		if it.expense.DeviceID == deviceID {
			matched = append(matched, it)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.expense.ExpenseDate.Equal(b.expense.ExpenseDate.Time) {
			return a.expense.ExpenseDate.After(b.expense.ExpenseDate.Time)
		}
		return a.seq > b.seq
	})

	out := make([]core.Expense, len(matched))
	for i, it := range matched {
		out[i] = it.expense
	}
	return out, nil
}

func (s *Store) UpdateOwned(_ context.Context, id, deviceID string, patch core.ExpensePatch, now time.Time) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.expense.DeviceID != deviceID {
		return core.Expense{}, core.ErrNotFoundOrUnauthorized
	}
	it.expense = patch.Apply(it.expense, now)
	return it.expense, nil
}

func (s *Store) DeleteOwned(_ context.Context, id, deviceID string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.expense.DeviceID != deviceID {
		return core.Expense{}, core.ErrNotFoundOrUnauthorized
	}
	delete(s.items, id)
	return it.expense, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len reports how many records are stored across all devices.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
