package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"spendlog/internal/client"
	"spendlog/internal/client/localstore"
	"spendlog/internal/core"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:5000"

// app is the per-invocation state shared by every command.
type app struct {
	server   string
	stateDir string
	logLevel string

	logger   *slog.Logger
	store    *localstore.Store
	deviceID string
	api      *client.APIClient
	budgets  client.BudgetStore
	now      func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:          "spendctl",
		Short:        "Record and summarize expenses on a spendlog server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.server, "server", envOr("SPENDLOG_SERVER", defaultServer), "spendlog API base URL")
	root.PersistentFlags().StringVar(&a.stateDir, "state-dir", envOr("SPENDCTL_STATE_DIR", defaultStateDir()), "directory holding the device id and budget")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(
		a.deviceCmd(),
		a.addCmd(),
		a.listCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.summaryCmd(),
		a.budgetCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	st, err := localstore.Open(a.stateDir)
	if err != nil {
		return err
	}
	a.store = st

	id, err := client.NewDeviceIdentity(st).ID(cmd.Context())
	if err != nil {
		return err
	}
	a.deviceID = id
	a.api = client.NewAPIClient(a.server, id)
	a.budgets = client.NewKVBudgetStore(st)

	a.logger.Debug("Loaded client state", "state_dir", a.stateDir, "device_id", id, "server", a.server)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) deviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print this client's device identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.deviceID)
			return nil
		},
	}
}

// expenseFlags are shared by add and edit.
type expenseFlags struct {
	title    string
	category string
	amount   string
	date     string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "expense title")
	cmd.Flags().StringVar(&f.category, "category", "", "Food, Transport, Utilities or Other")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.date, "date", "", "expense date (YYYY-MM-DD)")
}

// input converts the flags; unset flags stay zero.
func (f *expenseFlags) input() (core.ExpenseInput, error) {
	var in core.ExpenseInput
	in.Title = strings.TrimSpace(f.title)
	if f.category != "" {
		c, err := core.ParseCategory(f.category)
		if err != nil {
			return in, err
		}
		in.Category = c
	}
	if f.amount != "" {
		cents, err := core.ParseDecimalToCents(f.amount)
		if err != nil {
			return in, &core.ValidationError{Field: "amount", Message: err.Error()}
		}
		in.Amount = core.Money{Cents: cents}
	}
	if f.date != "" {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return in, err
		}
		in.ExpenseDate = d
	}
	return in, nil
}

func (a *app) addCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			if in.ExpenseDate.IsZero() {
				now := a.now()
				in.ExpenseDate = core.NewDate(now.Year(), int(now.Month()), now.Day())
			}
			e, err := client.NewExpense{}.Submit(cmd.Context(), a.api, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", e.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an existing expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			rec, err := a.find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			e, err := client.EditExpense{Record: rec}.Submit(cmd.Context(), a.api, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", e.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) find(ctx context.Context, id string) (core.Expense, error) {
	items, err := a.api.List(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFoundOrUnauthorized)
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// filterFlags select records by category and zero-based month.
type filterFlags struct {
	category string
	month    string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", core.FilterAll, "category to include, or all")
	cmd.Flags().StringVar(&f.month, "month", core.FilterAll, "month to include (0 = January), or all")
}

func (a *app) filtered(ctx context.Context, f filterFlags) ([]core.Expense, error) {
	filter, err := core.ParseFilter(f.category, f.month)
	if err != nil {
		return nil, err
	}
	items, err := a.api.List(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterExpenses(items, filter), nil
}

func (a *app) listCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List this device's expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.filtered(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printExpenses(cmd.OutOrStdout(), items)
		},
	}
	f.register(cmd)
	return cmd
}

func printExpenses(w io.Writer, items []core.Expense) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No expenses.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tTITLE")
	for _, e := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.ExpenseDate, e.Category, e.Amount, e.Title)
	}
	return tw.Flush()
}

func (a *app) summaryCmd() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals per category and progress against the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.filtered(cmd.Context(), f)
			if err != nil {
				return err
			}
			budget, err := a.budgets.Get(cmd.Context(), a.deviceID)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), core.Summarize(items, &budget))
		},
	}
	f.register(cmd)
	return cmd
}

func printSummary(w io.Writer, s core.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Expenses\t%d\n", s.Count)
	fmt.Fprintf(tw, "Total\t%s\n", s.Total)
	if s.TopCategory != nil {
		fmt.Fprintf(tw, "Top category\t%s (%s)\n", s.TopCategory.Category, s.TopCategory.Amount)
	}
	for _, ca := range s.ByCategory {
		fmt.Fprintf(tw, "  %s\t%s\n", ca.Category, ca.Amount)
	}
	if b := s.Budget; b != nil {
		fmt.Fprintf(tw, "Budget\t%s\n", b.Budget)
		fmt.Fprintf(tw, "Remaining\t%s\n", b.Remaining)
		fmt.Fprintf(tw, "Used\t%.1f%%\n", b.Percentage)
		if b.OverBudget {
			fmt.Fprintln(tw, "Status\tover budget")
		}
	}
	return tw.Flush()
}

func (a *app) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show or change the budget stored on this machine",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the budget",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				b, err := a.budgets.Get(cmd.Context(), a.deviceID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), b)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <amount>",
			Short: "Replace the budget",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cents, err := core.ParseSignedDecimalToCents(args[0])
				if err != nil {
					return fmt.Errorf("budget must be a number: %q", args[0])
				}
				if cents < 0 {
					return errors.New("budget cannot be negative")
				}
				b := core.Money{Cents: cents}
				if err := a.budgets.Set(cmd.Context(), a.deviceID, b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Budget set to %s\n", b)
				return nil
			},
		},
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "spendctl")
	}
	return ".spendctl"
}
