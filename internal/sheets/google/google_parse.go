package google

import (
	"fmt"
	"strings"
	"time"

	"spendlog/internal/core"
)

// Column layout of the mirror sheet.
const (
	colID = iota
	colDeviceID
	colDate
	colTitle
	colCategory
	colAmount
	colCreatedAt
	colUpdatedAt
)

func headerRow() []any {
	return []any{"ID", "Device", "Date", "Title", "Category", "Amount", "Created At", "Updated At"}
}

// rowValues renders e in column order A:H.
func rowValues(e core.Expense) []any {
	return []any{
		e.ID,
		e.DeviceID,
		e.ExpenseDate.String(),
		e.Title,
		string(e.Category),
		e.Amount.String(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// findRow returns the zero-based index of the row whose first column is id, or -1.
func findRow(rows [][]string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, row := range rows {
		if len(row) > colID && strings.TrimSpace(row[colID]) == id {
			return i
		}
	}
	return -1
}

// isNewer reports whether the mirrored row was written from a later version than e.
func isNewer(row []string, e core.Expense) bool {
	if len(row) <= colUpdatedAt {
		return false
	}
	mirrored, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(row[colUpdatedAt]))
	if err != nil {
		return false
	}
	return mirrored.After(e.UpdatedAt)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
