package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/report"

	"github.com/shopspring/decimal"
)

// EventPublisher delivers ledger events. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger writes: validation, persistence and the
// follow-up event. Events are best effort; a failed publish is logged and
// never fails the request.
type LedgerService struct {
	store     ledger.Store
	engine    *report.Engine
	publisher EventPublisher
	now       func() time.Time
}

// NewLedgerService wires the service. publisher may be nil, in which case
// no events are sent.
func NewLedgerService(store ledger.Store, engine *report.Engine, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		engine:    engine,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to date entries submitted without one.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// ExpensePatch carries client supplied expense fields. Nil fields are
// left unchanged on update and defaulted on create.
type ExpensePatch struct {
	Title       *string
	Amount      *decimal.Decimal
	Category    *core.Category
	Description *string
	Date        *time.Time
}

func (p ExpensePatch) apply(e *core.Expense) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
}

// IncomePatch is the income counterpart of ExpensePatch.
type IncomePatch struct {
	Title       *string
	Amount      *decimal.Decimal
	Source      *core.Source
	Frequency   *core.Frequency
	IsRecurring *bool
	Description *string
	Date        *time.Time
}

func (p IncomePatch) apply(i *core.Income) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Amount != nil {
		i.Amount = *p.Amount
	}
	if p.Source != nil {
		i.Source = *p.Source
	}
	if p.Frequency != nil {
		i.Frequency = *p.Frequency
	}
	if p.IsRecurring != nil {
		i.IsRecurring = *p.IsRecurring
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Date != nil {
		i.Date = *p.Date
	}
}

var errAmountRequired = core.Invalid("amount", "amount is required")

func (s *LedgerService) ListExpenses(ctx context.Context, ownerID string, f ledger.ExpenseFilter, page, size int) (core.Page[core.Expense], error) {
	if err := validatePage(page, size, s.engine.MaxPageSize()); err != nil {
		return core.Page[core.Expense]{}, err
	}
	if f.Category != "" && !f.Category.Valid() {
		return core.Page[core.Expense]{}, core.ErrInvalidCategory
	}
	items, err := s.store.ListExpenses(ctx, ownerID, f)
	if err != nil {
		return core.Page[core.Expense]{}, fmt.Errorf("list expenses: %w", err)
	}
	return report.Paginate(items, page, size), nil
}

func (s *LedgerService) CreateExpense(ctx context.Context, ownerID string, p ExpensePatch) (core.Expense, error) {
	if p.Amount == nil {
		return core.Expense{}, errAmountRequired
	}
	e := core.Expense{OwnerID: ownerID}
	p.apply(&e)
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.mutated(ctx, amqp.ExpenseCreated, log.OpCreate, ownerID, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, ownerID, id string, p ExpensePatch) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}
	p.apply(&e)
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.mutated(ctx, amqp.ExpenseUpdated, log.OpUpdate, ownerID, id)
	return updated, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return err
	}
	s.mutated(ctx, amqp.ExpenseDeleted, log.OpDelete, ownerID, id)
	return nil
}

func (s *LedgerService) ListIncomes(ctx context.Context, ownerID string, f ledger.IncomeFilter, page, size int) (core.Page[core.Income], error) {
	if err := validatePage(page, size, s.engine.MaxPageSize()); err != nil {
		return core.Page[core.Income]{}, err
	}
	if f.Source != "" && !f.Source.Valid() {
		return core.Page[core.Income]{}, core.ErrInvalidSource
	}
	items, err := s.store.ListIncomes(ctx, ownerID, f)
	if err != nil {
		return core.Page[core.Income]{}, fmt.Errorf("list incomes: %w", err)
	}
	return report.Paginate(items, page, size), nil
}

func (s *LedgerService) CreateIncome(ctx context.Context, ownerID string, p IncomePatch) (core.Income, error) {
	if p.Amount == nil {
		return core.Income{}, errAmountRequired
	}
	i := core.Income{OwnerID: ownerID}
	p.apply(&i)
	if i.Date.IsZero() {
		i.Date = s.now()
	}
	i.Normalize()
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}

	created, err := s.store.CreateIncome(ctx, i)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.mutated(ctx, amqp.IncomeCreated, log.OpCreate, ownerID, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, ownerID, id string, p IncomePatch) (core.Income, error) {
	i, err := s.store.GetIncome(ctx, ownerID, id)
	if err != nil {
		return core.Income{}, err
	}
	p.apply(&i)
	i.Normalize()
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}

	updated, err := s.store.UpdateIncome(ctx, i)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.mutated(ctx, amqp.IncomeUpdated, log.OpUpdate, ownerID, id)
	return updated, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteIncome(ctx, ownerID, id); err != nil {
		return err
	}
	s.mutated(ctx, amqp.IncomeDeleted, log.OpDelete, ownerID, id)
	return nil
}

// UpsertBudget creates or replaces the budget for key through the engine.
func (s *LedgerService) UpsertBudget(ctx context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error) {
	b, err := s.engine.UpsertBudget(ctx, key, limit)
	if err != nil {
		return core.Budget{}, err
	}
	s.mutated(ctx, amqp.BudgetUpserted, log.OpUpsert, key.OwnerID, b.ID)
	return b, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteBudget(ctx, ownerID, id); err != nil {
		return err
	}
	s.mutated(ctx, amqp.BudgetDeleted, log.OpDelete, ownerID, id)
	return nil
}

// Ping reports whether the store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *LedgerService) mutated(ctx context.Context, kind amqp.EventKind, op, ownerID, id string) {
	logger := log.FromContext(ctx)
	log.NewStructuredLogger(logger).LogLedgerMutation(ctx, op, ownerID, entryTypeOf(kind), id)

	if s.publisher == nil {
		logger.WithComponent(log.ComponentAMQP).DebugContext(ctx, "AMQP client not available, skipping ledger event",
			log.FieldEventKind, string(kind))
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewLedgerEvent(kind, ownerID, id)); err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Failed to publish ledger event", err,
			log.ComponentAMQP, log.OpPublish, log.NewFields().WithEntry(ownerID, entryTypeOf(kind), id))
	}
}

func entryTypeOf(kind amqp.EventKind) string {
	switch kind {
	case amqp.ExpenseCreated, amqp.ExpenseUpdated, amqp.ExpenseDeleted:
		return string(core.EntryExpense)
	case amqp.IncomeCreated, amqp.IncomeUpdated, amqp.IncomeDeleted:
		return string(core.EntryIncome)
	default:
		return "budget"
	}
}

func validatePage(page, size, max int) error {
	if page < 1 {
		return core.Invalid("page", "must be at least 1")
	}
	if size < 1 || size > max {
		return core.Invalid("limit", "must be between 1 and %d", max)
	}
	return nil
}
