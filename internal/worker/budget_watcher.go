// Package worker reacts to ledger events outside the request path.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/period"
	"fintrack/internal/report"

	"github.com/shopspring/decimal"
)

// Alert reports a budget whose spending reached the watcher's threshold.
type Alert struct {
	OwnerID    string
	Category   core.Category
	Month      int
	Year       int
	Limit      decimal.Decimal
	Spent      decimal.Decimal
	Percentage float64
}

// ExpenseGetter loads one owned expense.
type ExpenseGetter interface {
	GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
}

// Stats counts events seen by a BudgetWatcher.
type Stats struct {
	Processed int64
	Skipped   int64
	Alerts    int64
}

// BudgetWatcher checks the budget of an expense's category and month each
// time the expense is created or updated, and raises an Alert once spending
// reaches threshold percent of the limit.
type BudgetWatcher struct {
	expenses  ExpenseGetter
	engine    *report.Engine
	threshold float64
	notify    func(ctx context.Context, a Alert)
	logger    *log.Logger

	processed atomic.Int64
	skipped   atomic.Int64
	alerts    atomic.Int64
}

func NewBudgetWatcher(expenses ExpenseGetter, engine *report.Engine, threshold float64, logger *log.Logger) *BudgetWatcher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetWatcher{
		expenses:  expenses,
		engine:    engine,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// onAlert registers fn to receive alerts in addition to the warning log.
func (w *BudgetWatcher) onAlert(fn func(ctx context.Context, a Alert)) *BudgetWatcher {
	w.notify = fn
	return w
}

// HandleEvent implements amqp.EventHandler. Events other than expense
// creation and update are acknowledged without work, as are events for
// expenses deleted since.
func (w *BudgetWatcher) HandleEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	switch ev.Kind {
	case amqp.ExpenseCreated, amqp.ExpenseUpdated:
	default:
		w.skipped.Add(1)
		w.logger.DebugContext(ctx, "Ignoring ledger event", log.FieldEventKind, ev.Kind)
		return nil
	}

	expense, err := w.expenses.GetExpense(ctx, ev.OwnerID, ev.EntryID)
	if core.IsNotFound(err) {
		w.skipped.Add(1)
		w.logger.InfoContext(ctx, "Expense no longer exists, skipping",
			log.FieldOwnerID, ev.OwnerID,
			log.FieldEntryID, ev.EntryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %s: %w", ev.EntryID, err)
	}

	m := period.MonthOf(expense.Date.In(w.engine.Location()))
	progress, err := w.engine.GetBudgetProgress(ctx, ev.OwnerID, int(m.Month), m.Year)
	if err != nil {
		return fmt.Errorf("budget progress: %w", err)
	}
	w.processed.Add(1)

	for _, p := range progress {
		if p.Category != expense.Category || p.Percentage < w.threshold {
			continue
		}
		alert := Alert{
			OwnerID:    ev.OwnerID,
			Category:   p.Category,
			Month:      p.Month,
			Year:       p.Year,
			Limit:      p.Limit,
			Spent:      p.Spent,
			Percentage: p.Percentage,
		}
		w.alerts.Add(1)
		w.logger.WarnContext(ctx, "Budget threshold reached",
			log.FieldOwnerID, alert.OwnerID,
			log.FieldCategory, alert.Category,
			log.FieldMonth, alert.Month,
			log.FieldYear, alert.Year,
			"limit", alert.Limit.StringFixed(2),
			"spent", alert.Spent.StringFixed(2),
			"percentage", alert.Percentage)
		if w.notify != nil {
			w.notify(ctx, alert)
		}
	}
	return nil
}

func (w *BudgetWatcher) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Skipped:   w.skipped.Load(),
		Alerts:    w.alerts.Load(),
	}
}
