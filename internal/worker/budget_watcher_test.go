package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/log"
	"fintrack/internal/report"

	"github.com/shopspring/decimal"
)

func newWatcher(t *testing.T, threshold float64) (*BudgetWatcher, *memory.Store, *[]Alert) {
	t.Helper()
	store := memory.New()
	engine := report.NewEngine(store, report.WithLocation(time.UTC))
	var alerts []Alert
	w := NewBudgetWatcher(store, engine, threshold, log.New(log.Config{Output: io.Discard})).
		onAlert(func(_ context.Context, a Alert) { alerts = append(alerts, a) })
	return w, store, &alerts
}

func addExpense(t *testing.T, store *memory.Store, owner, amount string, c core.Category, date time.Time) core.Expense {
	t.Helper()
	e, err := store.CreateExpense(context.Background(), core.Expense{
		OwnerID: owner, Title: "expense", Amount: decimal.RequireFromString(amount), Category: c, Date: date,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return e
}

func TestBudgetWatcher_AlertsAtThreshold(t *testing.T) {
	w, store, alerts := newWatcher(t, 90)
	ctx := context.Background()
	june := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	if _, err := store.UpsertBudget(ctx, core.BudgetKey{OwnerID: "alice", Category: core.Groceries, Month: 6, Year: 2024}, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}

	first := addExpense(t, store, "alice", "50", core.Groceries, june)
	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ExpenseCreated, "alice", first.ID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(*alerts) != 0 {
		t.Fatalf("50%% spent should not alert, got %+v", *alerts)
	}

	second := addExpense(t, store, "alice", "45", core.Groceries, june)
	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ExpenseCreated, "alice", second.ID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(*alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", *alerts)
	}
	a := (*alerts)[0]
	if a.Category != core.Groceries || a.Month != 6 || a.Year != 2024 || a.Percentage != 95 {
		t.Errorf("unexpected alert %+v", a)
	}
	if !a.Spent.Equal(decimal.NewFromInt(95)) || !a.Limit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("alert amounts = spent %s limit %s", a.Spent, a.Limit)
	}

	if got := w.Stats(); got.Processed != 2 || got.Alerts != 1 || got.Skipped != 0 {
		t.Errorf("stats = %+v", got)
	}
}

func TestBudgetWatcher_OtherCategoryOrMonth(t *testing.T) {
	w, store, alerts := newWatcher(t, 50)
	ctx := context.Background()

	if _, err := store.UpsertBudget(ctx, core.BudgetKey{OwnerID: "alice", Category: core.Rent, Month: 6, Year: 2024}, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}

	// Over budget, but the new expense is in another category.
	addExpense(t, store, "alice", "20", core.Rent, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	food := addExpense(t, store, "alice", "5", core.Groceries, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ExpenseUpdated, "alice", food.ID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	// Same category, but a month without a budget.
	july := addExpense(t, store, "alice", "500", core.Rent, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ExpenseCreated, "alice", july.ID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(*alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", *alerts)
	}
}

func TestBudgetWatcher_SkipsIrrelevantEvents(t *testing.T) {
	w, store, alerts := newWatcher(t, 90)
	ctx := context.Background()
	e := addExpense(t, store, "alice", "10", core.Groceries, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	events := []amqp.LedgerEvent{
		amqp.NewLedgerEvent(amqp.IncomeCreated, "alice", "i-1"),
		amqp.NewLedgerEvent(amqp.BudgetUpserted, "alice", "b-1"),
		amqp.NewLedgerEvent(amqp.ExpenseDeleted, "alice", e.ID),
		// Deleted before the event arrived.
		amqp.NewLedgerEvent(amqp.ExpenseCreated, "alice", "missing"),
		// Someone else's expense looks missing too.
		amqp.NewLedgerEvent(amqp.ExpenseCreated, "bob", e.ID),
	}
	for _, ev := range events {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent(%s): %v", ev.Kind, err)
		}
	}

	if got := w.Stats(); got.Skipped != int64(len(events)) || got.Processed != 0 {
		t.Errorf("stats = %+v", got)
	}
	if len(*alerts) != 0 {
		t.Errorf("unexpected alerts %+v", *alerts)
	}
}

type failingGetter struct{ err error }

func (g failingGetter) GetExpense(context.Context, string, string) (core.Expense, error) {
	return core.Expense{}, g.err
}

func TestBudgetWatcher_StoreFailureIsReturned(t *testing.T) {
	boom := errors.New("database is locked")
	engine := report.NewEngine(memory.New())
	w := NewBudgetWatcher(failingGetter{err: boom}, engine, 90, log.New(log.Config{Output: io.Discard}))

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.ExpenseCreated, "alice", "e-1"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
