package sheets

import (
	"context"

	"spendlog/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror keeps an external copy of expense records, one entry per id.
	// Both operations are idempotent so redelivered events are harmless.
	ExpenseMirror interface {
		Upsert(ctx context.Context, e core.Expense) (rowRef string, err error)
		Delete(ctx context.Context, id string) error
	}
)
