package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Food      Category = "Food"
	Transport Category = "Transport"
	Utilities Category = "Utilities"
	Other     Category = "Other"

	// DefaultCategory is assigned when a new expense does not name one.
	DefaultCategory = Food

	// MaxTitleLength is measured in characters, not bytes.
	MaxTitleLength = 100

	dateLayout = "2006-01-02"
)

type (
	Category string

	// Date is a calendar date without time-of-day semantics, always UTC midnight.
	Date struct {
		time.Time
	}

	// Money holds an amount in cents.
	Money struct {
		Cents int64
	}

	// Expense is one recorded expense owned by a single device.
	Expense struct {
		ID          string    `json:"id"`
		DeviceID    string    `json:"deviceId"`
		Title       string    `json:"title"`
		Category    Category  `json:"category"`
		Amount      Money     `json:"amount"`
		ExpenseDate Date      `json:"expenseDate"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// ExpenseInput carries the client-controlled fields of a new expense.
	// An empty Category means DefaultCategory.
	ExpenseInput struct {
		Title       string
		Category    Category
		Amount      Money
		ExpenseDate Date
	}

	// ExpensePatch is a partial update; nil fields are left untouched.
	ExpensePatch struct {
		Title       *string
		Category    *Category
		Amount      *Money
		ExpenseDate *Date
	}
)

// Categories lists the accepted categories in display order.
func Categories() []Category {
	return []Category{Food, Transport, Utilities, Other}
}

// IsValid reports whether c is one of the fixed categories.
func (c Category) IsValid() bool {
	switch c {
	case Food, Transport, Utilities, Other:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the fixed categories, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", s)}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp, keeping only the
// calendar date in UTC.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &ValidationError{Field: "expenseDate", Message: "date is required"}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "expenseDate", Message: fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s)}
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// ZeroBasedMonth returns the month index used by month filters (0 = January).
func (d Date) ZeroBasedMonth() int {
	return int(d.Month()) - 1
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "expenseDate", Message: "date is required"}
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()}
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("title too long (max %d characters)", MaxTitleLength)}
	}
	return nil
}

func validateCategory(c Category) error {
	if !c.IsValid() {
		return &ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", c)}
	}
	return nil
}

func (in ExpenseInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.Category != "" {
		if err := validateCategory(in.Category); err != nil {
			return err
		}
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	return in.ExpenseDate.Validate()
}

// Validate checks only the fields present in the patch.
func (p ExpensePatch) Validate() error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.ExpenseDate != nil {
		if err := p.ExpenseDate.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Title == nil && p.Category == nil && p.Amount == nil && p.ExpenseDate == nil
}

// Apply returns a copy of e with the patch applied and UpdatedAt set to now.
// Identity fields are never touched.
func (p ExpensePatch) Apply(e Expense, now time.Time) Expense {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.ExpenseDate != nil {
		e.ExpenseDate = *p.ExpenseDate
	}
	e.UpdatedAt = now
	return e
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("expense id is required")
	}
	if strings.TrimSpace(e.DeviceID) == "" {
		return ErrMissingDeviceID
	}
	if err := validateTitle(e.Title); err != nil {
		return err
	}
	if err := validateCategory(e.Category); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.ExpenseDate.Validate()
}
