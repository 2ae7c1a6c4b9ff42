package client

import (
	"context"
	"fmt"

	"spendlog/internal/core"
)

// Expenses is the part of APIClient a form submission needs.
type Expenses interface {
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error)
}

// FormTarget says what an expense form is editing: a new record
// (NewExpense) or an existing one (EditExpense).
type FormTarget interface {
	Submit(ctx context.Context, api Expenses, in core.ExpenseInput) (core.Expense, error)
	isFormTarget()
}

// NewExpense submits the form as a create.
type NewExpense struct{}

// EditExpense submits the form as an update of Record.
type EditExpense struct {
	Record core.Expense
}

func (NewExpense) isFormTarget()  {}
func (EditExpense) isFormTarget() {}

func (NewExpense) Submit(ctx context.Context, api Expenses, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	return api.Create(ctx, in)
}

// Submit sends only the fields that differ from Record.
func (t EditExpense) Submit(ctx context.Context, api Expenses, in core.ExpenseInput) (core.Expense, error) {
	if t.Record.ID == "" {
		return core.Expense{}, fmt.Errorf("edit expense: record has no id")
	}
	patch := Diff(t.Record, in)
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}
	if patch.IsEmpty() {
		return t.Record, nil
	}
	return api.Update(ctx, t.Record.ID, patch)
}

// Diff builds the patch turning e into in. Zero-valued input fields are
// treated as unchanged.
func Diff(e core.Expense, in core.ExpenseInput) core.ExpensePatch {
	var p core.ExpensePatch
	if in.Title != "" && in.Title != e.Title {
		p.Title = &in.Title
	}
	if in.Category != "" && in.Category != e.Category {
		p.Category = &in.Category
	}
	if in.Amount.Cents != 0 && in.Amount != e.Amount {
		p.Amount = &in.Amount
	}
	if !in.ExpenseDate.IsZero() && !in.ExpenseDate.Equal(e.ExpenseDate.Time) {
		p.ExpenseDate = &in.ExpenseDate
	}
	return p
}
