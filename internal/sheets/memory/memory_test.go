package memory

import (
	"context"
	"testing"
	"time"

	"spendlog/internal/core"
)

func expense(id, title string, updated time.Time) core.Expense {
	return core.Expense{
		ID: id, DeviceID: "dev", Title: title, Category: core.Food,
		Amount: core.Money{Cents: 100}, ExpenseDate: core.NewDate(2024, 1, 2),
		CreatedAt: updated, UpdatedAt: updated,
	}
}

func TestMirrorUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	m := New()
	t0 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	ref, err := m.Upsert(ctx, expense("a", "Lunch", t0))
	if err != nil || ref != "mem:2" {
		t.Fatalf("first upsert: ref=%q err=%v", ref, err)
	}
	if ref, _ := m.Upsert(ctx, expense("b", "Dinner", t0)); ref != "mem:3" {
		t.Fatalf("second upsert ref=%q", ref)
	}

	if ref, _ := m.Upsert(ctx, expense("a", "Brunch", t0.Add(time.Minute))); ref != "mem:2" {
		t.Fatalf("update should keep the row, got %q", ref)
	}
	if _, err := m.Upsert(ctx, expense("a", "Stale", t0)); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}
	rows := m.Rows()
	if len(rows) != 2 || rows[0].Title != "Brunch" {
		t.Fatalf("rows = %+v", rows)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}
	if rows := m.Rows(); len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("rows after delete = %+v", rows)
	}
}

func TestMirrorRejectsInvalidRecord(t *testing.T) {
	if _, err := New().Upsert(context.Background(), core.Expense{ID: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
}
