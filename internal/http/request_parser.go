// Package http provides the JSON API server for expenses.
//
// This file turns request bodies into domain inputs. Bodies may be JSON or
// form-encoded; field shape is checked with validator tags, field meaning by
// the core package.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"spendlog/internal/core"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = &core.ValidationError{Message: "request body too large"}

// RequestBodyParser reads the request body once and serves field lookups
// from either a JSON object or form values.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of r's body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse decodes the body. Calling it again returns the first result.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			p.err = &core.ValidationError{Message: "invalid JSON body"}
			return p.err
		}
		obj, ok := v.(map[string]any)
		if !ok {
			p.err = &core.ValidationError{Message: "request body must be a JSON object"}
			return p.err
		}
		p.jsonData = obj
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = &core.ValidationError{Message: "invalid form body"}
		return p.err
	}
	p.formData = form
	return nil
}

// Lookup returns a sanitized field value and whether the field was sent.
// JSON nulls count as absent.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return "", false
		}
		return sanitizeInput(stringValue(val)), true
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; ok {
			return sanitizeInput(p.formData.Get(key)), true
		}
	}
	return "", false
}

// Get returns a field value or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// first returns the first present key among aliases.
func (p *RequestBodyParser) first(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p.Lookup(k); ok {
			return v, true
		}
	}
	return "", false
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// createRequest and updateRequest are validated for shape only.
type createRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Category    string `json:"category" validate:"omitempty,max=32"`
	Amount      string `json:"amount" validate:"required,max=32"`
	ExpenseDate string `json:"expenseDate" validate:"required,max=40"`
}

type updateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	Category    *string `json:"category" validate:"omitempty,max=32"`
	Amount      *string `json:"amount" validate:"omitempty,max=32"`
	ExpenseDate *string `json:"expenseDate" validate:"omitempty,max=40"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindCreate reads a new expense from the body. expense_date is accepted
// as an alias of expenseDate.
func bindCreate(p *RequestBodyParser) (core.ExpenseInput, error) {
	var req createRequest
	req.Title = p.Get("title")
	req.Category = p.Get("category")
	req.Amount = p.Get("amount")
	req.ExpenseDate, _ = p.first("expenseDate", "expense_date")

	if err := validate.Struct(req); err != nil {
		return core.ExpenseInput{}, toValidationError(err)
	}

	in := core.ExpenseInput{Title: req.Title}

	if req.Category != "" {
		c, err := core.ParseCategory(req.Category)
		if err != nil {
			return core.ExpenseInput{}, err
		}
		in.Category = c
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.ExpenseInput{}, amountError(err)
	}
	in.Amount = core.Money{Cents: cents}

	if in.ExpenseDate, err = core.ParseDate(req.ExpenseDate); err != nil {
		return core.ExpenseInput{}, err
	}
	return in, nil
}

// bindUpdate reads a partial update. Fields not sent stay untouched; the
// deviceId body field is never part of the patch.
func bindUpdate(p *RequestBodyParser) (core.ExpensePatch, error) {
	var req updateRequest
	if v, ok := p.Lookup("title"); ok {
		req.Title = &v
	}
	if v, ok := p.Lookup("category"); ok {
		req.Category = &v
	}
	if v, ok := p.Lookup("amount"); ok {
		req.Amount = &v
	}
	if v, ok := p.first("expenseDate", "expense_date"); ok {
		req.ExpenseDate = &v
	}

	if err := validate.Struct(req); err != nil {
		return core.ExpensePatch{}, toValidationError(err)
	}

	var patch core.ExpensePatch
	patch.Title = req.Title
	if req.Category != nil {
		c, err := core.ParseCategory(*req.Category)
		if err != nil {
			return core.ExpensePatch{}, err
		}
		patch.Category = &c
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return core.ExpensePatch{}, amountError(err)
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if req.ExpenseDate != nil {
		d, err := core.ParseDate(*req.ExpenseDate)
		if err != nil {
			return core.ExpensePatch{}, err
		}
		patch.ExpenseDate = &d
	}
	return patch, nil
}

// parseSummaryQuery reads category, month and budget from the query string.
func parseSummaryQuery(q url.Values) (core.ExpenseFilter, *core.Money, error) {
	f, err := core.ParseFilter(q.Get("category"), q.Get("month"))
	if err != nil {
		return core.ExpenseFilter{}, nil, err
	}

	raw := strings.TrimSpace(q.Get("budget"))
	if raw == "" {
		return f, nil, nil
	}
	cents, err := core.ParseSignedDecimalToCents(raw)
	if err != nil {
		return core.ExpenseFilter{}, nil, &core.ValidationError{Field: "budget", Message: fmt.Sprintf("invalid budget %q", raw)}
	}
	return f, &core.Money{Cents: cents}, nil
}

func amountError(err error) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &core.ValidationError{Field: "amount", Message: err.Error()}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &core.ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &core.ValidationError{Field: fe.Field(), Message: fe.Field() + " is required"}
	case "max":
		return &core.ValidationError{Field: fe.Field(), Message: fmt.Sprintf("%s too long (max %s characters)", fe.Field(), fe.Param())}
	default:
		return &core.ValidationError{Field: fe.Field(), Message: fmt.Sprintf("%s is invalid", fe.Field())}
	}
}
