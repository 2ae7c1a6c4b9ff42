package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/device"
)

// ErrServer marks 5xx answers from the API.
var ErrServer = errors.New("server error")

// APIError is a non-2xx answer decoded from the API's {"error": ...} body.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the core error taxonomy so callers can use
// errors.Is the same way the server does.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return core.ErrNotFoundOrUnauthorized
	case e.StatusCode == http.StatusBadRequest:
		return &core.ValidationError{Field: e.Field, Message: e.Message}
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return nil
	}
}

// APIClient calls the expense routes on behalf of one device.
type APIClient struct {
	baseURL  string
	deviceID string
	http     *http.Client
}

type APIOption func(*APIClient)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *APIClient) { a.http = c }
}

func NewAPIClient(baseURL, deviceID string, opts ...APIOption) *APIClient {
	a := &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *APIClient) DeviceID() string {
	return a.deviceID
}

type createPayload struct {
	Title       string        `json:"title"`
	Category    core.Category `json:"category,omitempty"`
	Amount      core.Money    `json:"amount"`
	ExpenseDate core.Date     `json:"expenseDate"`
}

type updatePayload struct {
	Title       *string        `json:"title,omitempty"`
	Category    *core.Category `json:"category,omitempty"`
	Amount      *core.Money    `json:"amount,omitempty"`
	ExpenseDate *core.Date     `json:"expenseDate,omitempty"`
}

func (a *APIClient) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := a.do(ctx, http.MethodPost, "/expenses", createPayload{
		Title:       in.Title,
		Category:    in.Category,
		Amount:      in.Amount,
		ExpenseDate: in.ExpenseDate,
	}, &out)
	return out, err
}

func (a *APIClient) List(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := a.do(ctx, http.MethodGet, "/expenses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *APIClient) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	var out core.Expense
	err := a.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), updatePayload{
		Title:       patch.Title,
		Category:    patch.Category,
		Amount:      patch.Amount,
		ExpenseDate: patch.ExpenseDate,
	}, &out)
	return out, err
}

func (a *APIClient) Delete(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
}

// Summary asks the server to run the aggregation engine. budget may be nil.
func (a *APIClient) Summary(ctx context.Context, f core.ExpenseFilter, budget *core.Money) (core.Summary, error) {
	q := url.Values{}
	if f.Category != nil {
		q.Set("category", f.Category.String())
	}
	if f.Month != nil {
		q.Set("month", strconv.Itoa(*f.Month))
	}
	if budget != nil {
		q.Set("budget", budget.String())
	}
	path := "/expenses/summary"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out core.Summary
	err := a.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (a *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(device.HeaderName, a.deviceID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Field = payload.Field
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
