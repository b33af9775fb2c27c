// Package ledger defines the storage ports of the ledger: raw expenses,
// incomes and budgets, always scoped to one owner.
package ledger

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/period"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	// ExpenseFilter narrows an expense listing. Zero fields match everything.
	ExpenseFilter struct {
		Range    period.Range
		Category core.Category
		Search   string
	}

	// IncomeFilter narrows an income listing. Zero fields match everything.
	IncomeFilter struct {
		Range  period.Range
		Source core.Source
		Search string
	}

	// ExpenseStore persists expenses. Listings are ordered by date desc.
	// Get, Update and Delete return core.NotFoundError for ids that are
	// missing or owned by someone else.
	ExpenseStore interface {
		ListExpenses(ctx context.Context, ownerID string, f ExpenseFilter) ([]core.Expense, error)
		GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, ownerID, id string) error
	}

	// IncomeStore persists incomes with the same contract as ExpenseStore.
	IncomeStore interface {
		ListIncomes(ctx context.Context, ownerID string, f IncomeFilter) ([]core.Income, error)
		GetIncome(ctx context.Context, ownerID, id string) (core.Income, error)
		CreateIncome(ctx context.Context, i core.Income) (core.Income, error)
		UpdateIncome(ctx context.Context, i core.Income) (core.Income, error)
		DeleteIncome(ctx context.Context, ownerID, id string) error
	}

	// BudgetStore persists budgets. UpsertBudget is atomic: concurrent calls
	// for the same key leave exactly one row holding the last written limit.
	BudgetStore interface {
		ListBudgets(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error)
		UpsertBudget(ctx context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id string) error
	}

	// Store is the full ledger backend.
	Store interface {
		ExpenseStore
		IncomeStore
		BudgetStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// MatchesSearch reports whether title contains search, ignoring case.
// An empty search matches every title.
func MatchesSearch(title, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(search))
}

// Match reports whether e passes the filter.
func (f ExpenseFilter) Match(e core.Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return f.Range.Contains(e.Date) && MatchesSearch(e.Title, f.Search)
}

// Match reports whether i passes the filter.
func (f IncomeFilter) Match(i core.Income) bool {
	if f.Source != "" && i.Source != f.Source {
		return false
	}
	return f.Range.Contains(i.Date) && MatchesSearch(i.Title, f.Search)
}
