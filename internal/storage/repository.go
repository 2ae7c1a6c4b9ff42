package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendlog/internal/core"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const (
	tableExpenses = "expenses"
	timeLayout    = time.RFC3339Nano
	dateLayout    = "2006-01-02"
)

var expenseColumns = []string{"id", "device_id", "title", "category", "amount_cents", "expense_date", "created_at", "updated_at"}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.StoreError("ping sqlite", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) error {
	query, args, err := squirrel.Insert(tableExpenses).
		Columns(expenseColumns...).
		Values(
			e.ID, e.DeviceID, e.Title, string(e.Category), e.Amount.Cents,
			e.ExpenseDate.Format(dateLayout),
			e.CreatedAt.UTC().Format(timeLayout),
			e.UpdatedAt.UTC().Format(timeLayout),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return core.StoreError("insert expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"device_id", e.DeviceID,
		"amount_cents", e.Amount.Cents,
		"expense_date", e.ExpenseDate.String())
	return nil
}

func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string) ([]core.Expense, error) {
	query, args, err := squirrel.Select(expenseColumns...).
		From(tableExpenses).
		Where(squirrel.Eq{"device_id": deviceID}).
		OrderBy("expense_date DESC", "seq DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.StoreError("list expenses", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, core.StoreError("list expenses", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreError("list expenses", err)
	}
	return out, nil
}

// UpdateOwned reads, patches and writes the record in one transaction so the
// ownership check and the write see the same row.
func (r *SQLiteRepository) UpdateOwned(ctx context.Context, id, deviceID string, patch core.ExpensePatch, now time.Time) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, core.StoreError("update expense", err)
	}
	defer tx.Rollback()

	current, err := r.getOwned(ctx, tx, id, deviceID)
	if err != nil {
		return core.Expense{}, err
	}
	updated := patch.Apply(current, now)

	query, args, err := squirrel.Update(tableExpenses).
		SetMap(map[string]any{
			"title":        updated.Title,
			"category":     string(updated.Category),
			"amount_cents": updated.Amount.Cents,
			"expense_date": updated.ExpenseDate.Format(dateLayout),
			"updated_at":   updated.UpdatedAt.UTC().Format(timeLayout),
		}).
		Where(squirrel.Eq{"id": id, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return core.Expense{}, fmt.Errorf("build update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return core.Expense{}, core.StoreError("update expense", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, core.StoreError("update expense", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteOwned(ctx context.Context, id, deviceID string) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, core.StoreError("delete expense", err)
	}
	defer tx.Rollback()

	current, err := r.getOwned(ctx, tx, id, deviceID)
	if err != nil {
		return core.Expense{}, err
	}

	query, args, err := squirrel.Delete(tableExpenses).
		Where(squirrel.Eq{"id": id, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return core.Expense{}, fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return core.Expense{}, core.StoreError("delete expense", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, core.StoreError("delete expense", err)
	}
	return current, nil
}

func (r *SQLiteRepository) getOwned(ctx context.Context, tx *sql.Tx, id, deviceID string) (core.Expense, error) {
	query, args, err := squirrel.Select(expenseColumns...).
		From(tableExpenses).
		Where(squirrel.Eq{"id": id, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return core.Expense{}, fmt.Errorf("build select: %w", err)
	}
	e, err := scanExpense(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return core.Expense{}, core.StoreError("get expense", err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                    core.Expense
		category, date       string
		createdAt, updatedAt string
	)
	if err := s.Scan(&e.ID, &e.DeviceID, &e.Title, &category, &e.Amount.Cents, &date, &createdAt, &updatedAt); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.Category(category)

	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense_date %q: %w", date, err)
	}
	e.ExpenseDate = core.NewDate(d.Year(), int(d.Month()), d.Day())

	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return e, nil
}
