package store

import (
	"context"
	"time"

	"spendlog/internal/core"
)

// Ports for record persistence.
type (
	// ExpenseRepository persists expense records partitioned by device.
	//
	// UpdateOwned and DeleteOwned match on both id and deviceID and return
	// core.ErrNotFoundOrUnauthorized when no such record exists, whether the id
	// is unknown or owned by another device.
	ExpenseRepository interface {
		Insert(ctx context.Context, e core.Expense) error
		// ListByDevice orders by expense date descending, newest insertion
		// first on equal dates.
		ListByDevice(ctx context.Context, deviceID string) ([]core.Expense, error)
		UpdateOwned(ctx context.Context, id, deviceID string, patch core.ExpensePatch, now time.Time) (core.Expense, error)
		DeleteOwned(ctx context.Context, id, deviceID string) (core.Expense, error)
		Ping(ctx context.Context) error
		Close() error
	}
)
