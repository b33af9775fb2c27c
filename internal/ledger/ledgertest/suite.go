// Package ledgertest holds the behaviour every ledger.Store must share.
// Backend packages call Run from their own tests.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/period"

	"github.com/shopspring/decimal"
)

// Run exercises s against the ledger.Store contract. newStore must return an
// empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	t.Helper()
	t.Run("expense crud", func(t *testing.T) { testExpenseCRUD(t, newStore(t)) })
	t.Run("expense filters", func(t *testing.T) { testExpenseFilters(t, newStore(t)) })
	t.Run("income crud", func(t *testing.T) { testIncomeCRUD(t, newStore(t)) })
	t.Run("owner isolation", func(t *testing.T) { testOwnerIsolation(t, newStore(t)) })
	t.Run("budget upsert", func(t *testing.T) { testBudgetUpsert(t, newStore(t)) })
	t.Run("concurrent budget upsert", func(t *testing.T) { testConcurrentUpsert(t, newStore(t)) })
	t.Run("budget delete", func(t *testing.T) { testBudgetDelete(t, newStore(t)) })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustCreateExpense(t *testing.T, s ledger.Store, e core.Expense) core.Expense {
	t.Helper()
	if e.OwnerID == "" {
		e.OwnerID = "alice"
	}
	if e.Category == "" {
		e.Category = core.Groceries
	}
	got, err := s.CreateExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return got
}

func testExpenseCRUD(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	created := mustCreateExpense(t, s, core.Expense{
		Title:       "Weekly shop",
		Amount:      amount("42.50"),
		Category:    core.Groceries,
		Description: "market",
		Date:        day(2024, 3, 2),
	})
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("store did not assign id/created_at: %+v", created)
	}

	got, err := s.GetExpense(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if !got.Amount.Equal(amount("42.5")) || got.Title != "Weekly shop" || !got.Date.Equal(day(2024, 3, 2)) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Title = "Big shop"
	got.Amount = amount("99.99")
	got.Category = core.DiningOut
	updated, err := s.UpdateExpense(ctx, got)
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if updated.Title != "Big shop" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	again, _ := s.GetExpense(ctx, "alice", created.ID)
	if again.Category != core.DiningOut || !again.Amount.Equal(amount("99.99")) {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := s.DeleteExpense(ctx, "alice", created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if _, err := s.GetExpense(ctx, "alice", created.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "alice", created.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func testExpenseFilters(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustCreateExpense(t, s, core.Expense{Title: "Coffee beans", Amount: amount("12"), Category: core.Groceries, Date: day(2024, 1, 5)})
	mustCreateExpense(t, s, core.Expense{Title: "Rent January", Amount: amount("1000"), Category: core.Rent, Date: day(2024, 1, 1)})
	mustCreateExpense(t, s, core.Expense{Title: "COFFEE shop", Amount: amount("4.20"), Category: core.DiningOut, Date: day(2024, 2, 3)})
	boundary := mustCreateExpense(t, s, core.Expense{
		Title: "Late snack", Amount: amount("3"), Category: core.DiningOut,
		Date: time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
	})

	all, err := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 expenses, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Date.After(all[i-1].Date) {
			t.Fatalf("listing not ordered by date desc: %v before %v", all[i-1].Date, all[i].Date)
		}
	}

	jan := period.NewMonth(2024, 1).Range(time.UTC)
	inJan, _ := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{Range: jan})
	if len(inJan) != 3 {
		t.Fatalf("expected 3 January expenses, got %d", len(inJan))
	}
	if inJan[0].ID != boundary.ID {
		t.Fatalf("entry dated at the range end should be included and first, got %+v", inJan[0])
	}

	coffee, _ := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{Search: "coffee"})
	if len(coffee) != 2 {
		t.Fatalf("case-insensitive search expected 2, got %d", len(coffee))
	}

	school := mustCreateExpense(t, s, core.Expense{Title: "ÉCOLE fees", Amount: amount("250"), Category: core.Education, Date: day(2024, 3, 1)})
	accented, _ := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{Search: "école"})
	if len(accented) != 1 || accented[0].ID != school.ID {
		t.Fatalf("search should fold non-ASCII case, got %+v", accented)
	}

	// Dates are stored at second precision, so a fractional lower bound
	// excludes an entry at the whole second before it.
	from := boundary.Date.Add(500 * time.Millisecond)
	after, _ := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{Range: period.Range{From: from, To: day(2024, 1, 31).Add(24 * time.Hour)}})
	if len(after) != 0 {
		t.Fatalf("expected nothing after %v, got %+v", from, after)
	}
	upTo, _ := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{Range: period.Range{From: day(2024, 1, 20), To: from}})
	if len(upTo) != 1 || upTo[0].ID != boundary.ID {
		t.Fatalf("fractional upper bound should include %v, got %+v", boundary.Date, upTo)
	}

	rent, _ := s.ListExpenses(ctx, "alice", ledger.ExpenseFilter{Category: core.Rent})
	if len(rent) != 1 || rent[0].Title != "Rent January" {
		t.Fatalf("category filter failed: %+v", rent)
	}
}

func testIncomeCRUD(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	created, err := s.CreateIncome(ctx, core.Income{
		OwnerID:     "alice",
		Title:       "Salary",
		Amount:      amount("3000"),
		Source:      core.Salary,
		Frequency:   core.Monthly,
		IsRecurring: true,
		Date:        day(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	if _, err := s.CreateIncome(ctx, core.Income{
		OwnerID: "alice", Title: "Gift", Amount: amount("50"),
		Source: core.OtherSource, Frequency: core.OneTime, Date: day(2024, 2, 14),
	}); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}

	got, err := s.GetIncome(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("GetIncome: %v", err)
	}
	if !got.IsRecurring || got.Frequency != core.Monthly || !got.Amount.Equal(amount("3000")) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Amount = amount("3100.10")
	got.IsRecurring = false
	if _, err := s.UpdateIncome(ctx, got); err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}

	salaries, _ := s.ListIncomes(ctx, "alice", ledger.IncomeFilter{Source: core.Salary})
	if len(salaries) != 1 || !salaries[0].Amount.Equal(amount("3100.1")) || salaries[0].IsRecurring {
		t.Fatalf("unexpected salaries: %+v", salaries)
	}

	all, _ := s.ListIncomes(ctx, "alice", ledger.IncomeFilter{})
	if len(all) != 2 || all[0].Title != "Salary" {
		t.Fatalf("unexpected income listing: %+v", all)
	}

	if err := s.DeleteIncome(ctx, "alice", created.ID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if _, err := s.GetIncome(ctx, "alice", created.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testOwnerIsolation(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	e := mustCreateExpense(t, s, core.Expense{OwnerID: "alice", Title: "Private", Amount: amount("1"), Date: day(2024, 1, 1)})

	if _, err := s.GetExpense(ctx, "bob", e.ID); !core.IsNotFound(err) {
		t.Fatalf("foreign get should be not found, got %v", err)
	}
	foreign := e
	foreign.OwnerID = "bob"
	if _, err := s.UpdateExpense(ctx, foreign); !core.IsNotFound(err) {
		t.Fatalf("foreign update should be not found, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "bob", e.ID); !core.IsNotFound(err) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}
	list, _ := s.ListExpenses(ctx, "bob", ledger.ExpenseFilter{})
	if len(list) != 0 {
		t.Fatalf("bob sees alice's expenses: %+v", list)
	}

	b, err := s.UpsertBudget(ctx, core.BudgetKey{OwnerID: "alice", Category: core.Rent, Month: 1, Year: 2024}, amount("10"))
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if err := s.DeleteBudget(ctx, "bob", b.ID); !core.IsNotFound(err) {
		t.Fatalf("foreign budget delete should be not found, got %v", err)
	}
	if got, _ := s.ListBudgets(ctx, "bob", 1, 2024); len(got) != 0 {
		t.Fatalf("bob sees alice's budgets: %+v", got)
	}
}

func testBudgetUpsert(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	key := core.BudgetKey{OwnerID: "alice", Category: core.Groceries, Month: 6, Year: 2024}

	first, err := s.UpsertBudget(ctx, key, amount("100"))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := s.UpsertBudget(ctx, key, amount("150"))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert created a second budget: %s vs %s", first.ID, second.ID)
	}

	if _, err := s.UpsertBudget(ctx, core.BudgetKey{OwnerID: "alice", Category: core.Rent, Month: 6, Year: 2024}, amount("900")); err != nil {
		t.Fatalf("rent upsert: %v", err)
	}
	if _, err := s.UpsertBudget(ctx, core.BudgetKey{OwnerID: "alice", Category: core.Rent, Month: 7, Year: 2024}, amount("900")); err != nil {
		t.Fatalf("july upsert: %v", err)
	}

	june, err := s.ListBudgets(ctx, "alice", 6, 2024)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(june) != 2 {
		t.Fatalf("expected 2 June budgets, got %d", len(june))
	}
	if june[0].Category != core.Groceries || june[1].Category != core.Rent {
		t.Fatalf("budgets not ordered by category: %+v", june)
	}
	if !june[0].Limit.Equal(amount("150")) {
		t.Fatalf("last write should win, got %s", june[0].Limit)
	}
}

func testConcurrentUpsert(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	key := core.BudgetKey{OwnerID: "alice", Category: core.Utilities, Month: 2, Year: 2024}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.UpsertBudget(ctx, key, decimal.NewFromInt(int64(100+i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert: %v", err)
	}

	budgets, err := s.ListBudgets(ctx, "alice", 2, 2024)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("expected exactly one budget after concurrent upserts, got %d", len(budgets))
	}
}

func testBudgetDelete(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	b, err := s.UpsertBudget(ctx, core.BudgetKey{OwnerID: "alice", Category: core.Clothing, Month: 3, Year: 2024}, amount("80"))
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if err := s.DeleteBudget(ctx, "alice", b.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if got, _ := s.ListBudgets(ctx, "alice", 3, 2024); len(got) != 0 {
		t.Fatalf("budget still listed after delete: %+v", got)
	}
	if err := s.DeleteBudget(ctx, "alice", b.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
