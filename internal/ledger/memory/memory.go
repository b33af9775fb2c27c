// Package memory is an in-process ledger.Store used for development and
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      int64
	expenses map[string]expenseRow
	incomes  map[string]incomeRow
	budgets  map[core.BudgetKey]core.Budget
}

// rows keep an insertion sequence so equal dates list newest first.
type expenseRow struct {
	core.Expense
	seq int64
}

type incomeRow struct {
	core.Income
	seq int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		expenses: make(map[string]expenseRow),
		incomes:  make(map[string]incomeRow),
		budgets:  make(map[core.BudgetKey]core.Budget),
	}
}

// WithClock replaces the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ListExpenses(_ context.Context, ownerID string, f ledger.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	rows := make([]expenseRow, 0)
	for _, r := range s.expenses {
		if r.OwnerID == ownerID && f.Match(r.Expense) {
			rows = append(rows, r)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(rows, func(a, b expenseRow) int {
		return newestFirst(a.Date, b.Date, a.seq, b.seq)
	})
	out := make([]core.Expense, len(rows))
	for i, r := range rows {
		out[i] = r.Expense
	}
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, ownerID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.expenses[id]
	if !ok || r.OwnerID != ownerID {
		return core.Expense{}, core.NotFound("expense", id)
	}
	return r.Expense, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ledger.NewID()
	}
	if _, exists := s.expenses[e.ID]; exists {
		return core.Expense{}, &core.ConflictError{Resource: "expense", Message: "id already exists"}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().Truncate(time.Second)
	}
	s.seq++
	s.expenses[e.ID] = expenseRow{Expense: e, seq: s.seq}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.expenses[e.ID]
	if !ok || r.OwnerID != e.OwnerID {
		return core.Expense{}, core.NotFound("expense", e.ID)
	}
	e.CreatedAt = r.CreatedAt
	s.expenses[e.ID] = expenseRow{Expense: e, seq: r.seq}
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.expenses[id]
	if !ok || r.OwnerID != ownerID {
		return core.NotFound("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, ownerID string, f ledger.IncomeFilter) ([]core.Income, error) {
	s.mu.Lock()
	rows := make([]incomeRow, 0)
	for _, r := range s.incomes {
		if r.OwnerID == ownerID && f.Match(r.Income) {
			rows = append(rows, r)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(rows, func(a, b incomeRow) int {
		return newestFirst(a.Date, b.Date, a.seq, b.seq)
	})
	out := make([]core.Income, len(rows))
	for i, r := range rows {
		out[i] = r.Income
	}
	return out, nil
}

func (s *Store) GetIncome(_ context.Context, ownerID, id string) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.incomes[id]
	if !ok || r.OwnerID != ownerID {
		return core.Income{}, core.NotFound("income", id)
	}
	return r.Income, nil
}

func (s *Store) CreateIncome(_ context.Context, i core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = ledger.NewID()
	}
	if _, exists := s.incomes[i.ID]; exists {
		return core.Income{}, &core.ConflictError{Resource: "income", Message: "id already exists"}
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = s.now().Truncate(time.Second)
	}
	s.seq++
	s.incomes[i.ID] = incomeRow{Income: i, seq: s.seq}
	return i, nil
}

func (s *Store) UpdateIncome(_ context.Context, i core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.incomes[i.ID]
	if !ok || r.OwnerID != i.OwnerID {
		return core.Income{}, core.NotFound("income", i.ID)
	}
	i.CreatedAt = r.CreatedAt
	s.incomes[i.ID] = incomeRow{Income: i, seq: r.seq}
	return i, nil
}

func (s *Store) DeleteIncome(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.incomes[id]
	if !ok || r.OwnerID != ownerID {
		return core.NotFound("income", id)
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	s.mu.Lock()
	out := make([]core.Budget, 0)
	for k, b := range s.budgets {
		if k.OwnerID == ownerID && k.Month == month && k.Year == year {
			out = append(out, b)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b core.Budget) int {
		switch {
		case a.Category < b.Category:
			return -1
		case a.Category > b.Category:
			return 1
		}
		return 0
	})
	return out, nil
}

// UpsertBudget inserts or updates the budget for key under the store lock.
func (s *Store) UpsertBudget(_ context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().Truncate(time.Second)
	b, ok := s.budgets[key]
	if !ok {
		b = core.Budget{
			ID:        ledger.NewID(),
			OwnerID:   key.OwnerID,
			Category:  key.Category,
			Month:     key.Month,
			Year:      key.Year,
			CreatedAt: now,
		}
	}
	b.Limit = limit
	b.UpdatedAt = now
	s.budgets[key] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.budgets {
		if b.ID == id && b.OwnerID == ownerID {
			delete(s.budgets, k)
			return nil
		}
	}
	return core.NotFound("budget", id)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func newestFirst(da, db time.Time, sa, sb int64) int {
	if c := db.Compare(da); c != 0 {
		return c
	}
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	}
	return 0
}
