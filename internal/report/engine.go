package report

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/period"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// LedgerReader is the subset of ledger.Store the engine reads through.
type LedgerReader interface {
	ListExpenses(ctx context.Context, ownerID string, f ledger.ExpenseFilter) ([]core.Expense, error)
	ListIncomes(ctx context.Context, ownerID string, f ledger.IncomeFilter) ([]core.Income, error)
	ListBudgets(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error)
}

// Engine answers the reporting operations for one owner at a time. It holds
// no per-request state and is safe for concurrent use.
type Engine struct {
	store       LedgerReader
	loc         *time.Location
	maxPageSize int
}

type Option func(*Engine)

// WithLocation sets the time zone that defines calendar months.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithMaxPageSize caps the feed page size.
func WithMaxPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPageSize = n
		}
	}
}

func NewEngine(store LedgerReader, opts ...Option) *Engine {
	e := &Engine{store: store, loc: time.UTC, maxPageSize: 100}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the time zone used for month boundaries.
func (e *Engine) Location() *time.Location { return e.loc }

// MaxPageSize returns the largest accepted feed page size.
func (e *Engine) MaxPageSize() int { return e.maxPageSize }

// GetBudgetProgress returns the owner's budgets for the month joined with the
// month's spending per category, ordered by category.
func (e *Engine) GetBudgetProgress(ctx context.Context, ownerID string, month, year int) ([]core.BudgetProgress, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	budgets, err := e.store.ListBudgets(ctx, ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetProgress{}, nil
	}

	rng := period.NewMonth(year, month).Range(e.loc)
	expenses, err := e.store.ListExpenses(ctx, ownerID, ledger.ExpenseFilter{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	spend := SpendByCategory(Aggregate(expenses, rng, ByCategory))
	return ComputeProgress(budgets, spend), nil
}

// UpsertBudget validates the key and limit and stores them through the
// store's atomic upsert.
func (e *Engine) UpsertBudget(ctx context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error) {
	if err := key.Validate(); err != nil {
		return core.Budget{}, err
	}
	if !core.ValidAmount(limit) {
		return core.Budget{}, core.ErrInvalidLimit
	}
	b, err := e.store.UpsertBudget(ctx, key, limit)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentReport).DebugContext(ctx, "Budget upserted",
		log.FieldOwnerID, key.OwnerID,
		log.FieldCategory, string(key.Category),
		log.FieldMonth, key.Month,
		log.FieldYear, key.Year)
	return b, nil
}

// GetCategorySummary returns the month's spending per category, largest
// total first.
func (e *Engine) GetCategorySummary(ctx context.Context, ownerID string, month, year int) ([]core.CategorySummary, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	rng := period.NewMonth(year, month).Range(e.loc)
	expenses, err := e.store.ListExpenses(ctx, ownerID, ledger.ExpenseFilter{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return SortedSummaries(Aggregate(expenses, rng, ByCategory)), nil
}

// GetTransactionFeed returns one page of the owner's merged expenses and
// incomes, newest first.
func (e *Engine) GetTransactionFeed(ctx context.Context, ownerID string, q FeedQuery) (core.Page[core.Transaction], error) {
	if err := q.Validate(e.maxPageSize); err != nil {
		return core.Page[core.Transaction]{}, err
	}

	var (
		expenses []core.Expense
		incomes  []core.Income
		err      error
	)
	if q.Type != core.EntryIncome {
		expenses, err = e.store.ListExpenses(ctx, ownerID, ledger.ExpenseFilter{Range: q.Range, Search: q.Search})
		if err != nil {
			return core.Page[core.Transaction]{}, fmt.Errorf("list expenses: %w", err)
		}
	}
	if q.Type != core.EntryExpense {
		incomes, err = e.store.ListIncomes(ctx, ownerID, ledger.IncomeFilter{Range: q.Range, Search: q.Search})
		if err != nil {
			return core.Page[core.Transaction]{}, fmt.Errorf("list incomes: %w", err)
		}
	}
	return Merge(expenses, incomes, q), nil
}

// GetDashboard returns all-time and current-month totals plus the trailing
// trend, all relative to now. Both entry streams load concurrently.
func (e *Engine) GetDashboard(ctx context.Context, ownerID string, now time.Time) (core.Dashboard, error) {
	var (
		expenses []core.Expense
		incomes  []core.Income
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = e.store.ListExpenses(gctx, ownerID, ledger.ExpenseFilter{})
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		incomes, err = e.store.ListIncomes(gctx, ownerID, ledger.IncomeFilter{})
		if err != nil {
			return fmt.Errorf("list incomes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}

	now = now.In(e.loc)
	all := period.Range{}
	month := period.MonthOf(now).Range(e.loc)

	months := period.TrailingMonths(TrendMonths, now)
	window := period.Range{
		From: months[0].Range(e.loc).From,
		To:   month.To,
	}

	d := core.Dashboard{
		TotalExpenses: Sum(expenses, all),
		TotalIncome:   Sum(incomes, all),
		MonthExpenses: Sum(expenses, month),
		MonthIncome:   Sum(incomes, month),
		Trend: Trend(TrendMonths, now,
			Aggregate(expenses, window, ByMonth[core.Expense](e.loc)),
			Aggregate(incomes, window, ByMonth[core.Income](e.loc))),
	}
	d.Savings = d.TotalIncome.Sub(d.TotalExpenses)
	return d, nil
}
