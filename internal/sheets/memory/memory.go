// Package memory is an in-process ExpenseMirror with the same row semantics
// as the Google Sheets mirror: one row per id, insertion order kept.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendlog/internal/core"
	ports "spendlog/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.Expense
}

var _ ports.ExpenseMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// Upsert replaces the row for e.ID or appends one. Rows holding a newer
// updatedAt are kept, so a redelivered older event cannot roll a row back.
func (m *Mirror) Upsert(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, row := range m.rows {
		if row.ID != e.ID {
			continue
		}
		if row.UpdatedAt.After(e.UpdatedAt) {
			return rowRef(i), nil
		}
		m.rows[i] = e
		return rowRef(i), nil
	}
	m.rows = append(m.rows, e)
	return rowRef(len(m.rows) - 1), nil
}

// Delete drops the row for id; an absent row is not an error.
func (m *Mirror) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows in sheet order.
func (m *Mirror) Rows() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Expense(nil), m.rows...)
}

// row 1 is the header in the real sheet
func rowRef(idx int) string {
	return fmt.Sprintf("mem:%d", idx+2)
}
