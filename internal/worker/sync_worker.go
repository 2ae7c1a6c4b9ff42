package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"spendlog/internal/amqp"
	"spendlog/internal/sheets"
)

// SyncWorker replays expense change events onto an external mirror.
type SyncWorker struct {
	mirror sheets.ExpenseMirror

	processed atomic.Int64
	failed    atomic.Int64
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Processed int64
	Failed    int64
}

func NewSyncWorker(mirror sheets.ExpenseMirror) *SyncWorker {
	return &SyncWorker{mirror: mirror}
}

// HandleEvent applies one event. A returned error requeues the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if err := w.apply(ctx, ev); err != nil {
		w.failed.Add(1)
		return err
	}
	w.processed.Add(1)
	return nil
}

func (w *SyncWorker) apply(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}

	slog.InfoContext(ctx, "Processing expense event",
		"type", ev.Type,
		"id", ev.ID,
		"device_id", ev.DeviceID)

	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		if ev.Expense == nil {
			return fmt.Errorf("%s event %s without expense", ev.Type, ev.ID)
		}
		ref, err := w.mirror.Upsert(ctx, *ev.Expense)
		if err != nil {
			return fmt.Errorf("sync expense to mirror: %w", err)
		}
		slog.InfoContext(ctx, "Successfully synced expense",
			"id", ev.ID,
			"sheets_ref", ref,
			"amount_cents", ev.Expense.Amount.Cents)
		return nil

	case amqp.EventDeleted:
		if err := w.mirror.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete expense from mirror: %w", err)
		}
		slog.InfoContext(ctx, "Successfully deleted expense from mirror", "id", ev.ID)
		return nil

	default:
		return fmt.Errorf("unsupported event type %q", ev.Type)
	}
}

func (w *SyncWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Failed: w.failed.Load()}
}
