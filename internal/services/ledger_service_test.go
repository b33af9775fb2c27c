package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/report"

	"github.com/shopspring/decimal"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestService(pub EventPublisher) (*LedgerService, *memory.Store) {
	store := memory.New()
	svc := NewLedgerService(store, report.NewEngine(store, report.WithMaxPageSize(50)), pub).
		WithClock(func() time.Time { return fixedNow })
	return svc, store
}

func ptr[T any](v T) *T { return &v }

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestLedgerService_CreateExpense(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	e, err := svc.CreateExpense(ctx, "alice", ExpensePatch{
		Title:  ptr("  Groceries run "),
		Amount: amount("25.40"),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if e.ID == "" || e.OwnerID != "alice" {
		t.Fatalf("unexpected expense: %+v", e)
	}
	if e.Title != "Groceries run" || e.Category != core.OtherCategory {
		t.Fatalf("normalization not applied: %+v", e)
	}
	if !e.Date.Equal(fixedNow) {
		t.Fatalf("missing date should default to now, got %v", e.Date)
	}
	if got := pub.kinds(); len(got) != 1 || got[0] != amqp.ExpenseCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestLedgerService_CreateRejectsInvalidInput(t *testing.T) {
	pub := &fakePublisher{}
	svc, store := newTestService(pub)
	ctx := context.Background()

	tests := []struct {
		name  string
		patch ExpensePatch
	}{
		{"missing amount", ExpensePatch{Title: ptr("x")}},
		{"negative amount", ExpensePatch{Title: ptr("x"), Amount: amount("-3")}},
		{"too precise", ExpensePatch{Title: ptr("x"), Amount: amount("1.234")}},
		{"blank title", ExpensePatch{Title: ptr("  "), Amount: amount("1")}},
		{"bad category", ExpensePatch{Title: ptr("x"), Amount: amount("1"), Category: ptr(core.Category("Gadgets"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateExpense(ctx, "alice", tt.patch); !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if len(pub.kinds()) != 0 {
		t.Fatalf("no events expected for rejected input, got %v", pub.kinds())
	}
	if all, _ := store.ListExpenses(ctx, "alice", ledger.ExpenseFilter{}); len(all) != 0 {
		t.Fatalf("rejected input was stored: %+v", all)
	}
}

func TestLedgerService_UpdateIsPartialAndOwnerScoped(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, "alice", ExpensePatch{
		Title:    ptr("Dinner"),
		Amount:   amount("40"),
		Category: ptr(core.DiningOut),
		Date:     ptr(time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	updated, err := svc.UpdateExpense(ctx, "alice", created.ID, ExpensePatch{Amount: amount("45.50")})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if updated.Title != "Dinner" || updated.Category != core.DiningOut || !updated.Amount.Equal(decimal.RequireFromString("45.5")) {
		t.Fatalf("partial update lost fields: %+v", updated)
	}

	if _, err := svc.UpdateExpense(ctx, "mallory", created.ID, ExpensePatch{Amount: amount("1")}); !core.IsNotFound(err) {
		t.Fatalf("foreign update should be not found, got %v", err)
	}
	if err := svc.DeleteExpense(ctx, "mallory", created.ID); !core.IsNotFound(err) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}
	if err := svc.DeleteExpense(ctx, "alice", created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	want := []amqp.EventKind{amqp.ExpenseCreated, amqp.ExpenseUpdated, amqp.ExpenseDeleted}
	got := pub.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestLedgerService_IncomeLifecycle(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	inc, err := svc.CreateIncome(ctx, "alice", IncomePatch{Title: ptr("Salary"), Amount: amount("3000"), Source: ptr(core.Salary)})
	if err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	if inc.Frequency != core.Monthly {
		t.Fatalf("frequency default = %q", inc.Frequency)
	}

	updated, err := svc.UpdateIncome(ctx, "alice", inc.ID, IncomePatch{IsRecurring: ptr(true), Frequency: ptr(core.Yearly)})
	if err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}
	if !updated.IsRecurring || updated.Frequency != core.Yearly || updated.Source != core.Salary {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if _, err := svc.UpdateIncome(ctx, "alice", inc.ID, IncomePatch{Frequency: ptr(core.Frequency("Hourly"))}); !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}

	page, err := svc.ListIncomes(ctx, "alice", ledger.IncomeFilter{Source: core.Salary}, 1, 10)
	if err != nil || page.Total != 1 {
		t.Fatalf("ListIncomes = %+v, %v", page, err)
	}
	if _, err := svc.ListIncomes(ctx, "alice", ledger.IncomeFilter{Source: "Lottery"}, 1, 10); !core.IsValidation(err) {
		t.Fatalf("expected validation error for unknown source, got %v", err)
	}

	if err := svc.DeleteIncome(ctx, "alice", inc.ID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
}

func TestLedgerService_ListExpensesPaginates(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		if _, err := svc.CreateExpense(ctx, "alice", ExpensePatch{
			Title:  ptr("item"),
			Amount: amount("1"),
			Date:   ptr(fixedNow.AddDate(0, 0, -i)),
		}); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	page, err := svc.ListExpenses(ctx, "alice", ledger.ExpenseFilter{}, 3, 10)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if page.Total != 25 || page.PageCount != 3 || len(page.Items) != 5 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", page.Total, page.PageCount, len(page.Items))
	}

	for _, bad := range [][2]int{{0, 10}, {1, 0}, {1, 51}} {
		if _, err := svc.ListExpenses(ctx, "alice", ledger.ExpenseFilter{}, bad[0], bad[1]); !core.IsValidation(err) {
			t.Fatalf("page=%d limit=%d: expected validation error, got %v", bad[0], bad[1], err)
		}
	}
}

func TestLedgerService_BudgetsPublishEvents(t *testing.T) {
	pub := &fakePublisher{}
	svc, store := newTestService(pub)
	ctx := context.Background()
	key := core.BudgetKey{OwnerID: "alice", Category: core.Rent, Month: 6, Year: 2024}

	b, err := svc.UpsertBudget(ctx, key, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if _, err := svc.UpsertBudget(ctx, key, decimal.NewFromInt(150)); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	budgets, _ := store.ListBudgets(ctx, "alice", 6, 2024)
	if len(budgets) != 1 || !budgets[0].Limit.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected single budget at 150, got %+v", budgets)
	}

	if err := svc.DeleteBudget(ctx, "alice", b.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := svc.DeleteBudget(ctx, "alice", b.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	got := pub.kinds()
	if len(got) != 3 || got[0] != amqp.BudgetUpserted || got[2] != amqp.BudgetDeleted {
		t.Fatalf("events = %v", got)
	}
}

func TestLedgerService_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newTestService(pub)

	if _, err := svc.CreateExpense(context.Background(), "alice", ExpensePatch{Title: ptr("x"), Amount: amount("1")}); err != nil {
		t.Fatalf("publish failure leaked into request: %v", err)
	}
}
