package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"spendlog/internal/client"
	"spendlog/internal/core"
)

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, client.ErrKeyNotFound) {
		t.Fatalf("Get(missing) err = %v", err)
	}

	if err := s.Set(ctx, "k", "one"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, err := s.Get(ctx, "k"); err != nil || v != "two" {
		t.Fatalf("Get(k) = %q, %v", v, err)
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	deviceID, err := client.NewDeviceIdentity(s).ID(ctx)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if err := client.NewKVBudgetStore(s).Set(ctx, deviceID, core.Money{Cents: 20000}); err != nil {
		t.Fatalf("Set budget: %v", err)
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	again, _ := client.NewDeviceIdentity(s).ID(ctx)
	if again != deviceID {
		t.Errorf("device id changed: %q -> %q", deviceID, again)
	}
	budgets := client.NewKVBudgetStore(s)
	if b, _ := budgets.Get(ctx, deviceID); b.Cents != 20000 {
		t.Errorf("budget = %v", b)
	}
	if b, _ := budgets.Get(ctx, "def"); b.Cents != 0 {
		t.Errorf("other device budget = %v", b)
	}
}
