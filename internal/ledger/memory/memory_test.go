package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/ledgertest"

	"github.com/shopspring/decimal"
)

func TestStoreContract(t *testing.T) {
	ledgertest.Run(t, func(*testing.T) ledger.Store { return New() })
}

func TestEqualDatesListNewestInsertFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	first, _ := s.CreateExpense(ctx, core.Expense{OwnerID: "o", Title: "a", Amount: decimal.NewFromInt(1), Category: core.Rent, Date: date})
	second, _ := s.CreateExpense(ctx, core.Expense{OwnerID: "o", Title: "b", Amount: decimal.NewFromInt(1), Category: core.Rent, Date: date})

	got, err := s.ListExpenses(ctx, "o", ledger.ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestClockStampsBudgets(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return fixed })
	b, err := s.UpsertBudget(context.Background(), core.BudgetKey{OwnerID: "o", Category: core.Rent, Month: 6, Year: 2024}, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if !b.CreatedAt.Equal(fixed) || !b.UpdatedAt.Equal(fixed) {
		t.Fatalf("timestamps not from clock: %+v", b)
	}
}
