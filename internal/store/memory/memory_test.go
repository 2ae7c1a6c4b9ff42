package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendlog/internal/core"
)

func newExpense(id, device string, y, m, d int) core.Expense {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return core.Expense{
		ID:          id,
		DeviceID:    device,
		Title:       "item " + id,
		Category:    core.Food,
		Amount:      core.Money{Cents: 100},
		ExpenseDate: core.NewDate(y, m, d),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestListOrderAndScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, e := range []core.Expense{
		newExpense("a", "dev-1", 2024, 3, 1),
		newExpense("b", "dev-1", 2024, 3, 5),
		newExpense("c", "dev-2", 2024, 3, 9),
		newExpense("d", "dev-1", 2024, 3, 1),
	} {
		if err := s.Insert(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}

	got, err := s.ListByDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"b", "d", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}

	empty, err := s.ListByDevice(ctx, "dev-unknown")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", empty, err)
	}
}

func TestInsertRejectsDuplicatesAndInvalid(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Insert(ctx, newExpense("a", "dev-1", 2024, 1, 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, newExpense("a", "dev-1", 2024, 1, 1)); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	bad := newExpense("b", "dev-1", 2024, 1, 1)
	bad.Category = "Rent"
	if err := s.Insert(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Insert(ctx, newExpense("a", "dev-1", 2024, 1, 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	title := "changed"
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.UpdateOwned(ctx, "a", "dev-2", core.ExpensePatch{Title: &title}, now); !errors.Is(err, core.ErrNotFoundOrUnauthorized) {
		t.Fatalf("expected not found for foreign device, got %v", err)
	}
	if _, err := s.UpdateOwned(ctx, "missing", "dev-1", core.ExpensePatch{Title: &title}, now); !errors.Is(err, core.ErrNotFoundOrUnauthorized) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}

	got, err := s.UpdateOwned(ctx, "a", "dev-1", core.ExpensePatch{Title: &title}, now)
	if err != nil || got.Title != "changed" || !got.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected update result %+v err=%v", got, err)
	}

	if _, err := s.DeleteOwned(ctx, "a", "dev-2"); !errors.Is(err, core.ErrNotFoundOrUnauthorized) {
		t.Fatalf("expected not found for foreign delete, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("foreign delete must not remove the record")
	}
	if _, err := s.DeleteOwned(ctx, "a", "dev-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.DeleteOwned(ctx, "a", "dev-1"); !errors.Is(err, core.ErrNotFoundOrUnauthorized) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
}
