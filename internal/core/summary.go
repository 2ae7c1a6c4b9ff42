package core

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterAll is the pass-through sentinel for both category and month filters.
const FilterAll = "all"

type (
	// CategoryAmount represents an amount aggregated by category.
	CategoryAmount struct {
		Category Category `json:"category"`
		Amount   Money    `json:"amount"`
	}

	// ExpenseFilter narrows a record list. A nil field matches everything.
	ExpenseFilter struct {
		Category *Category
		// Month is zero-based: 0 is January, 11 is December.
		Month *int
	}

	// BudgetStatus compares spending against a budget.
	BudgetStatus struct {
		Budget     Money   `json:"budget"`
		Spent      Money   `json:"spent"`
		Remaining  Money   `json:"remaining"`
		Percentage float64 `json:"percentage"`
		OverBudget bool    `json:"overBudget"`
	}

	// Summary is the dashboard view over a (filtered) record list.
	Summary struct {
		Count       int              `json:"count"`
		Total       Money            `json:"total"`
		ByCategory  []CategoryAmount `json:"byCategory"`
		TopCategory *CategoryAmount  `json:"topCategory"`
		Budget      *BudgetStatus    `json:"budget,omitempty"`
	}
)

// ParseFilter builds a filter from the raw category and month selectors.
// Empty or "all" leaves that dimension unfiltered.
func ParseFilter(category, month string) (ExpenseFilter, error) {
	var f ExpenseFilter

	category = strings.TrimSpace(category)
	if category != "" && !strings.EqualFold(category, FilterAll) {
		c, err := ParseCategory(category)
		if err != nil {
			return ExpenseFilter{}, err
		}
		f.Category = &c
	}

	month = strings.TrimSpace(month)
	if month != "" && !strings.EqualFold(month, FilterAll) {
		m, err := strconv.Atoi(month)
		if err != nil || m < 0 || m > 11 {
			return ExpenseFilter{}, &ValidationError{Field: "month", Message: fmt.Sprintf("invalid month %q: expected 0-11 or %q", month, FilterAll)}
		}
		f.Month = &m
	}

	return f, nil
}

// Matches reports whether e passes every set dimension of the filter.
func (f ExpenseFilter) Matches(e Expense) bool {
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.Month != nil && e.ExpenseDate.ZeroBasedMonth() != *f.Month {
		return false
	}
	return true
}

// FilterExpenses returns the records matching f, preserving input order.
// The input slice is never modified.
func FilterExpenses(records []Expense, f ExpenseFilter) []Expense {
	out := make([]Expense, 0, len(records))
	for _, e := range records {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// CategoryTotals sums amounts per category in first-encountered order.
// Categories with no records are absent.
func CategoryTotals(records []Expense) []CategoryAmount {
	idx := make(map[Category]int)
	var out []CategoryAmount
	for _, e := range records {
		i, ok := idx[e.Category]
		if !ok {
			idx[e.Category] = len(out)
			out = append(out, CategoryAmount{Category: e.Category})
			i = len(out) - 1
		}
		out[i].Amount.Cents += e.Amount.Cents
	}
	return out
}

// TopCategory returns the category with the largest total. On ties the
// first-encountered category wins. ok is false for an empty list.
func TopCategory(records []Expense) (CategoryAmount, bool) {
	totals := CategoryTotals(records)
	if len(totals) == 0 {
		return CategoryAmount{}, false
	}
	top := totals[0]
	for _, ca := range totals[1:] {
		if ca.Amount.Cents > top.Amount.Cents {
			top = ca
		}
	}
	return top, true
}

func TotalSpent(records []Expense) Money {
	var total Money
	for _, e := range records {
		total.Cents += e.Amount.Cents
	}
	return total
}

// CompareBudget derives the budget progress figures. A budget that is not
// positive counts as unset: Percentage is 0 and OverBudget stays false.
// Percentage is not capped at 100.
func CompareBudget(spent, budget Money) BudgetStatus {
	st := BudgetStatus{
		Budget:    budget,
		Spent:     spent,
		Remaining: Money{Cents: budget.Cents - spent.Cents},
	}
	if budget.Cents > 0 {
		st.Percentage = float64(spent.Cents) / float64(budget.Cents) * 100
		st.OverBudget = spent.Cents > budget.Cents
	}
	return st
}

// Summarize aggregates records that have already been filtered. budget may be nil.
func Summarize(records []Expense, budget *Money) Summary {
	s := Summary{
		Count:      len(records),
		Total:      TotalSpent(records),
		ByCategory: CategoryTotals(records),
	}
	if s.ByCategory == nil {
		s.ByCategory = []CategoryAmount{}
	}
	if top, ok := TopCategory(records); ok {
		s.TopCategory = &top
	}
	if budget != nil {
		st := CompareBudget(s.Total, *budget)
		s.Budget = &st
	}
	return s
}
