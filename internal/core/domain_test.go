package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{"2024-03-05T23:30:00Z", "2024-03-05", true},
		{"2024-03-05T23:30:00-02:00", "2024-03-06", true}, // normalized to UTC
		{"05/03/2024", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"Food", "food", " TRANSPORT ", "utilities", "Other"} {
		if _, err := ParseCategory(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseCategory("Rent"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{
		Title:       "Coffee",
		Amount:      Money{Cents: 450},
		ExpenseDate: NewDate(2024, 3, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok without category, got %v", err)
	}

	bads := map[string]ExpenseInput{
		"empty title":  {Title: "  ", Amount: Money{Cents: 1}, ExpenseDate: NewDate(2024, 1, 1)},
		"long title":   {Title: strings.Repeat("x", MaxTitleLength+1), Amount: Money{Cents: 1}, ExpenseDate: NewDate(2024, 1, 1)},
		"bad category": {Title: "a", Category: "Rent", Amount: Money{Cents: 1}, ExpenseDate: NewDate(2024, 1, 1)},
		"zero amount":  {Title: "a", Amount: Money{Cents: 0}, ExpenseDate: NewDate(2024, 1, 1)},
		"no date":      {Title: "a", Amount: Money{Cents: 1}},
	}
	for name, in := range bads {
		t.Run(name, func(t *testing.T) {
			err := in.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// 100 multi-byte characters is still within the limit
	if err := (ExpenseInput{Title: strings.Repeat("é", MaxTitleLength), Amount: Money{Cents: 1}, ExpenseDate: NewDate(2024, 1, 1)}).Validate(); err != nil {
		t.Fatalf("expected ok for %d runes, got %v", MaxTitleLength, err)
	}
}

func TestExpensePatchApply(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := Expense{
		ID:          "id-1",
		DeviceID:    "dev-a",
		Title:       "Bus",
		Category:    Transport,
		Amount:      Money{Cents: 250},
		ExpenseDate: NewDate(2024, 1, 1),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	amount := Money{Cents: 300}
	p := ExpensePatch{Amount: &amount}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := created.Add(time.Hour)
	got := p.Apply(e, now)
	if got.Amount.Cents != 300 || got.Title != "Bus" || got.Category != Transport {
		t.Fatalf("unexpected patched record: %+v", got)
	}
	if got.ID != e.ID || got.DeviceID != e.DeviceID || !got.CreatedAt.Equal(created) {
		t.Fatalf("identity fields changed: %+v", got)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt %v, got %v", now, got.UpdatedAt)
	}

	bad := Category("Rent")
	if err := (ExpensePatch{Category: &bad}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !(ExpensePatch{}).IsEmpty() {
		t.Fatalf("expected empty patch")
	}
}

func TestExpenseJSON(t *testing.T) {
	e := Expense{
		ID:          "id-1",
		DeviceID:    "dev-a",
		Title:       "Coffee",
		Category:    Food,
		Amount:      Money{Cents: 450},
		ExpenseDate: NewDate(2024, 3, 5),
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"amount":4.50`, `"expenseDate":"2024-03-05"`, `"deviceId":"dev-a"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}

	var back Expense
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Amount.Cents != 450 || back.ExpenseDate.String() != "2024-03-05" {
		t.Fatalf("unexpected round trip: %+v", back)
	}
}

func TestValidationErrorIs(t *testing.T) {
	err := error(&ValidationError{Field: "title", Message: "title is required"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError to match ErrValidation")
	}
	if errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("unexpected match")
	}
	if got := err.Error(); got != "title: title is required" {
		t.Fatalf("unexpected message %q", got)
	}

	wrapped := StoreError("list expenses", errors.New("disk full"))
	if !errors.Is(wrapped, ErrStoreUnavailable) {
		t.Fatalf("expected store error to match ErrStoreUnavailable")
	}
}
