package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"spendlog/internal/config"
	"spendlog/internal/core"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is not a repository backend")
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "memory,sqlite,mongo" {
		t.Errorf("unexpected backend strings %q", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	_, err := FromAppConfig(&config.Config{DataBackend: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "invalid backend type") {
		t.Fatalf("expected invalid backend error, got %v", err)
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:   "mongo",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "db",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != MongoBackend || cfg.MongoURI != "mongodb://localhost:27017" || cfg.MongoDatabase != "db" {
		t.Fatalf("unexpected backend config %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"mongo without uri", Config{Type: MongoBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if res.Repository == nil {
			t.Fatal("expected repository")
		}
		if res.Cleanup != nil {
			t.Error("memory backend has nothing to clean up")
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "expenses.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Cleanup()

		e := core.Expense{
			ID: "id-1", DeviceID: "dev", Title: "Coffee", Category: core.Food,
			Amount: core.Money{Cents: 150}, ExpenseDate: core.NewDate(2024, 1, 2),
		}
		if err := res.Repository.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := res.Repository.ListByDevice(ctx, "dev")
		if err != nil || len(got) != 1 {
			t.Fatalf("ListByDevice = %v, %v", got, err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
			t.Fatal("expected error")
		}
	})
}
