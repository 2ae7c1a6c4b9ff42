package client

import (
	"context"
	"errors"
	"fmt"

	"spendlog/internal/core"
)

const budgetKeyPrefix = "budget_"

// BudgetStore keeps one budget per device. Get returns zero when no budget
// was ever set. Negative values are stored as given.
type BudgetStore interface {
	Get(ctx context.Context, deviceID string) (core.Money, error)
	Set(ctx context.Context, deviceID string, amount core.Money) error
}

// KVBudgetStore persists budgets as decimal strings under budget_<deviceId>.
type KVBudgetStore struct {
	kv KV
}

func NewKVBudgetStore(kv KV) *KVBudgetStore {
	return &KVBudgetStore{kv: kv}
}

func BudgetKey(deviceID string) string {
	return budgetKeyPrefix + deviceID
}

func (s *KVBudgetStore) Get(ctx context.Context, deviceID string) (core.Money, error) {
	raw, err := s.kv.Get(ctx, BudgetKey(deviceID))
	if errors.Is(err, ErrKeyNotFound) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("get budget: %w", err)
	}
	if raw == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseSignedDecimalToCents(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("get budget: stored value %q is not numeric: %w", raw, err)
	}
	return core.Money{Cents: cents}, nil
}

func (s *KVBudgetStore) Set(ctx context.Context, deviceID string, amount core.Money) error {
	if err := s.kv.Set(ctx, BudgetKey(deviceID), amount.String()); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}
