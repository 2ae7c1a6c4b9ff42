package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"spendlog/internal/core"
)

func parserFor(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := parserFor(t, `{"title":"  Coffee\u0007 ","amount":4.50,"deviceId":"abc","note":null}`)

	if got := p.Get("title"); got != "Coffee" {
		t.Errorf("Get('title') = %q, want 'Coffee'", got)
	}
	if got := p.Get("amount"); got != "4.50" {
		t.Errorf("Get('amount') = %q, want '4.50' (number text preserved)", got)
	}
	if _, ok := p.Lookup("note"); ok {
		t.Error("JSON null should count as absent")
	}
	if _, ok := p.Lookup("missing"); ok {
		t.Error("missing key should be absent")
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	p := parserFor(t, "title=Bus+ticket&amount=2%2C50&category=")

	if got := p.Get("title"); got != "Bus ticket" {
		t.Errorf("Get('title') = %q", got)
	}
	if got := p.Get("amount"); got != "2,50" {
		t.Errorf("Get('amount') = %q", got)
	}
	if v, ok := p.Lookup("category"); !ok || v != "" {
		t.Errorf("Lookup('category') = %q, %v; want present and empty", v, ok)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"title":`},
		{"JSON array", `[1,2,3]`},
		{"too large", `{"title":"` + strings.Repeat("x", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			p := NewRequestBodyParser(req)
			err := p.Parse()
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("Parse() error = %v, want validation error", err)
			}
			if again := p.Parse(); again != err {
				t.Errorf("second Parse() = %v, want cached %v", again, err)
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := parserFor(t, "")
	if val := p.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestBindCreate(t *testing.T) {
	t.Run("valid JSON with alias and default category", func(t *testing.T) {
		p := parserFor(t, `{"title":"Coffee","amount":"4,5","expense_date":"2024-03-01T10:00:00Z"}`)
		in, err := bindCreate(p)
		if err != nil {
			t.Fatalf("bindCreate() error = %v", err)
		}
		if in.Title != "Coffee" || in.Amount.Cents != 450 || in.Category != "" {
			t.Errorf("unexpected input %+v", in)
		}
		if in.ExpenseDate.String() != "2024-03-01" {
			t.Errorf("ExpenseDate = %s", in.ExpenseDate)
		}
	})

	t.Run("category is case-insensitive", func(t *testing.T) {
		p := parserFor(t, `{"title":"Bus","category":"transport","amount":2,"expenseDate":"2024-03-02"}`)
		in, err := bindCreate(p)
		if err != nil {
			t.Fatalf("bindCreate() error = %v", err)
		}
		if in.Category != core.Transport {
			t.Errorf("Category = %q", in.Category)
		}
	})

	t.Run("amount in exponent notation", func(t *testing.T) {
		p := parserFor(t, `{"title":"Rent","amount":1.5e2,"expenseDate":"2024-03-02"}`)
		in, err := bindCreate(p)
		if err != nil {
			t.Fatalf("bindCreate() error = %v", err)
		}
		if in.Amount.Cents != 15000 {
			t.Errorf("Amount = %d cents, want 15000", in.Amount.Cents)
		}
	})

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing title", `{"amount":1,"expenseDate":"2024-01-01"}`, "title"},
		{"missing amount", `{"title":"x","expenseDate":"2024-01-01"}`, "amount"},
		{"missing date", `{"title":"x","amount":1}`, "expenseDate"},
		{"title too long", `{"title":"` + strings.Repeat("é", 101) + `","amount":1,"expenseDate":"2024-01-01"}`, "title"},
		{"negative amount", `{"title":"x","amount":-3,"expenseDate":"2024-01-01"}`, "amount"},
		{"zero amount", `{"title":"x","amount":"0.00","expenseDate":"2024-01-01"}`, "amount"},
		{"unknown category", `{"title":"x","category":"Rent","amount":1,"expenseDate":"2024-01-01"}`, "category"},
		{"bad date", `{"title":"x","amount":1,"expenseDate":"01/02/2024"}`, "expenseDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bindCreate(parserFor(t, tt.body))
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("bindCreate() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q (%v)", ve.Field, tt.wantField, err)
			}
		})
	}
}

func TestBindUpdate(t *testing.T) {
	p := parserFor(t, `{"amount":"12.345","deviceId":"other"}`)
	patch, err := bindUpdate(p)
	if err != nil {
		t.Fatalf("bindUpdate() error = %v", err)
	}
	if patch.Title != nil || patch.Category != nil || patch.ExpenseDate != nil {
		t.Errorf("unexpected fields in patch %+v", patch)
	}
	if patch.Amount == nil || patch.Amount.Cents != 1235 {
		t.Errorf("Amount = %+v, want 1235 cents", patch.Amount)
	}

	empty, err := bindUpdate(parserFor(t, `{}`))
	if err != nil || !empty.IsEmpty() {
		t.Errorf("empty body should give empty patch, got %+v, %v", empty, err)
	}

	if _, err := bindUpdate(parserFor(t, `{"category":"nope"}`)); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseSummaryQuery(t *testing.T) {
	f, budget, err := parseSummaryQuery(url.Values{"category": {"Food"}, "month": {"2"}, "budget": {"200"}})
	if err != nil {
		t.Fatalf("parseSummaryQuery() error = %v", err)
	}
	if f.Category == nil || *f.Category != core.Food || f.Month == nil || *f.Month != 2 {
		t.Errorf("unexpected filter %+v", f)
	}
	if budget == nil || budget.Cents != 20000 {
		t.Errorf("budget = %+v", budget)
	}

	f, budget, err = parseSummaryQuery(url.Values{"category": {"all"}, "month": {"all"}})
	if err != nil || f.Category != nil || f.Month != nil || budget != nil {
		t.Errorf("pass-through selectors: %+v %+v %v", f, budget, err)
	}

	for _, q := range []url.Values{
		{"month": {"12"}},
		{"budget": {"lots"}},
		{"category": {"Rent"}},
	} {
		if _, _, err := parseSummaryQuery(q); !errors.Is(err, core.ErrValidation) {
			t.Errorf("parseSummaryQuery(%v) error = %v, want validation error", q, err)
		}
	}
}
