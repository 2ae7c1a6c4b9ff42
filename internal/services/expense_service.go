package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/store"

	"github.com/google/uuid"
)

// EventPublisher receives committed changes for replication. Publishing is
// best effort: a failure never rolls back or fails the operation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService implements the device-scoped CRUD operations on top of a
// record store and optionally announces changes on AMQP.
type ExpenseService struct {
	repo      store.ExpenseRepository
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

type Option func(*ExpenseService)

// WithPublisher enables change events.
func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func NewExpenseService(repo store.ExpenseRepository, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, assigns a new id and the owning device, and stores the record.
func (s *ExpenseService) Create(ctx context.Context, deviceID string, in core.ExpenseInput) (core.Expense, error) {
	if deviceID == "" {
		return core.Expense{}, core.ErrMissingDeviceID
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	category := in.Category
	if category == "" {
		category = core.DefaultCategory
	}
	now := s.now()
	e := core.Expense{
		ID:          s.newID(),
		DeviceID:    deviceID,
		Title:       strings.TrimSpace(in.Title),
		Category:    category,
		Amount:      in.Amount,
		ExpenseDate: in.ExpenseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		return core.Expense{}, storeErr("create expense", err)
	}

	logChange(ctx, applog.OpCreate, e)
	s.publish(ctx, amqp.EventCreated, e)
	return e, nil
}

// List returns every record of the device, newest expense date first.
func (s *ExpenseService) List(ctx context.Context, deviceID string) ([]core.Expense, error) {
	if deviceID == "" {
		return nil, core.ErrMissingDeviceID
	}
	out, err := s.repo.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, storeErr("list expenses", err)
	}
	return out, nil
}

// Update applies a partial update to a record owned by deviceID.
func (s *ExpenseService) Update(ctx context.Context, deviceID, id string, patch core.ExpensePatch) (core.Expense, error) {
	if deviceID == "" {
		return core.Expense{}, core.ErrMissingDeviceID
	}
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}

	e, err := s.repo.UpdateOwned(ctx, id, deviceID, patch, s.now())
	if err != nil {
		return core.Expense{}, storeErr("update expense", err)
	}

	logChange(ctx, applog.OpUpdate, e)
	s.publish(ctx, amqp.EventUpdated, e)
	return e, nil
}

// Delete removes a record owned by deviceID.
func (s *ExpenseService) Delete(ctx context.Context, deviceID, id string) error {
	if deviceID == "" {
		return core.ErrMissingDeviceID
	}

	e, err := s.repo.DeleteOwned(ctx, id, deviceID)
	if err != nil {
		return storeErr("delete expense", err)
	}

	logChange(ctx, applog.OpDelete, e)
	s.publish(ctx, amqp.EventDeleted, e)
	return nil
}

// Summary lists the device's records, filters them and aggregates the result.
// budget is compared against the filtered total when non-nil; it is never stored.
func (s *ExpenseService) Summary(ctx context.Context, deviceID string, f core.ExpenseFilter, budget *core.Money) (core.Summary, error) {
	records, err := s.List(ctx, deviceID)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(core.FilterExpenses(records, f), budget), nil
}

// Ready reports whether the record store is reachable.
func (s *ExpenseService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e)); err != nil {
		// Don't fail the request - the record is already stored
		applog.FromContext(ctx).WithComponent(applog.ComponentAMQP).ErrorContext(ctx, "Failed to publish expense event",
			"type", t,
			applog.FieldExpenseID, e.ID,
			applog.FieldError, err.Error())
	}
}

func logChange(ctx context.Context, op string, e core.Expense) {
	applog.NewStructuredLogger(applog.FromContext(ctx).WithComponent(applog.ComponentExpense)).
		LogExpenseChange(ctx, op, e.DeviceID, e.ID, e.Category.String(), e.Amount.Cents, e.ExpenseDate.String())
}

// storeErr passes domain errors through and marks everything else as a store failure.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrNotFoundOrUnauthorized),
		errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrStoreUnavailable),
		errors.Is(err, core.ErrMissingDeviceID):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return core.StoreError(op, err)
	}
}
