// Package postgres is the PostgreSQL ledger.Store backed by a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/period"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Open migrates the database at databaseURL and connects a pool to it.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const expenseColumns = `id, owner_id, title, amount_cents, category, description, date, created_at`

func (s *Store) ListExpenses(ctx context.Context, ownerID string, f ledger.ExpenseFilter) ([]core.Expense, error) {
	w := newWhere(ownerID)
	w.dateRange(f.Range)
	if f.Category != "" {
		w.add("category = ", string(f.Category))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE `+w.String()+` ORDER BY date DESC, seq DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		return scanExpense(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect expenses: %w", err)
	}
	out = slices.DeleteFunc(out, func(e core.Expense) bool { return !ledger.MatchesSearch(e.Title, f.Search) })
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND owner_id = $2`, id, ownerID)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = ledger.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+expenseColumns,
		e.ID, e.OwnerID, e.Title, core.ToCents(e.Amount), string(e.Category), e.Description,
		e.Date.UTC(), e.CreatedAt.UTC().Truncate(time.Second))
	created, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, translate(err, "expense")
	}
	return created, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE expenses SET title = $1, amount_cents = $2, category = $3, description = $4, date = $5
		 WHERE id = $6 AND owner_id = $7 RETURNING `+expenseColumns,
		e.Title, core.ToCents(e.Amount), string(e.Category), e.Description, e.Date.UTC(), e.ID, e.OwnerID)
	updated, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", e.ID)
	}
	if err != nil {
		return core.Expense{}, translate(err, "expense")
	}
	return updated, nil
}

func (s *Store) DeleteExpense(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFound("expense", id)
	}
	return nil
}

const incomeColumns = `id, owner_id, title, amount_cents, source, frequency, is_recurring, description, date, created_at`

func (s *Store) ListIncomes(ctx context.Context, ownerID string, f ledger.IncomeFilter) ([]core.Income, error) {
	w := newWhere(ownerID)
	w.dateRange(f.Range)
	if f.Source != "" {
		w.add("source = ", string(f.Source))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE `+w.String()+` ORDER BY date DESC, seq DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Income, error) {
		return scanIncome(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect incomes: %w", err)
	}
	out = slices.DeleteFunc(out, func(i core.Income) bool { return !ledger.MatchesSearch(i.Title, f.Search) })
	if out == nil {
		out = []core.Income{}
	}
	return out, nil
}

func (s *Store) GetIncome(ctx context.Context, ownerID, id string) (core.Income, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	i, err := scanIncome(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Income{}, core.NotFound("income", id)
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return i, nil
}

func (s *Store) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	if i.ID == "" {
		i.ID = ledger.NewID()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = s.now()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO incomes (`+incomeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+incomeColumns,
		i.ID, i.OwnerID, i.Title, core.ToCents(i.Amount), string(i.Source), string(i.Frequency),
		i.IsRecurring, i.Description, i.Date.UTC(), i.CreatedAt.UTC().Truncate(time.Second))
	created, err := scanIncome(row)
	if err != nil {
		return core.Income{}, translate(err, "income")
	}
	return created, nil
}

func (s *Store) UpdateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE incomes SET title = $1, amount_cents = $2, source = $3, frequency = $4, is_recurring = $5,
		 description = $6, date = $7 WHERE id = $8 AND owner_id = $9 RETURNING `+incomeColumns,
		i.Title, core.ToCents(i.Amount), string(i.Source), string(i.Frequency), i.IsRecurring,
		i.Description, i.Date.UTC(), i.ID, i.OwnerID)
	updated, err := scanIncome(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Income{}, core.NotFound("income", i.ID)
	}
	if err != nil {
		return core.Income{}, translate(err, "income")
	}
	return updated, nil
}

func (s *Store) DeleteIncome(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM incomes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFound("income", id)
	}
	return nil
}

const budgetColumns = `id, owner_id, category, limit_cents, month, year, created_at, updated_at`

func (s *Store) ListBudgets(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = $1 AND month = $2 AND year = $3 ORDER BY category`,
		ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Budget, error) {
		return scanBudget(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect budgets: %w", err)
	}
	if out == nil {
		out = []core.Budget{}
	}
	return out, nil
}

// UpsertBudget is a single INSERT ... ON CONFLICT statement on the
// budgets_period_key constraint.
func (s *Store) UpsertBudget(ctx context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error) {
	now := s.now().Truncate(time.Second)
	row := s.pool.QueryRow(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT ON CONSTRAINT budgets_period_key
		 DO UPDATE SET limit_cents = EXCLUDED.limit_cents, updated_at = EXCLUDED.updated_at
		 RETURNING `+budgetColumns,
		ledger.NewID(), key.OwnerID, string(key.Category), core.ToCents(limit), key.Month, key.Year, now)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFound("budget", id)
	}
	return nil
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e        core.Expense
		cents    int64
		category string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &cents, &category, &e.Description, &e.Date, &e.CreatedAt); err != nil {
		return e, err
	}
	e.Amount = core.FromCents(cents)
	e.Category = core.Category(category)
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func scanIncome(row pgx.Row) (core.Income, error) {
	var (
		i                 core.Income
		cents             int64
		source, frequency string
	)
	if err := row.Scan(&i.ID, &i.OwnerID, &i.Title, &cents, &source, &frequency, &i.IsRecurring,
		&i.Description, &i.Date, &i.CreatedAt); err != nil {
		return i, err
	}
	i.Amount = core.FromCents(cents)
	i.Source = core.Source(source)
	i.Frequency = core.Frequency(frequency)
	i.Date = i.Date.UTC()
	i.CreatedAt = i.CreatedAt.UTC()
	return i, nil
}

func scanBudget(row pgx.Row) (core.Budget, error) {
	var (
		b        core.Budget
		cents    int64
		month    int16
		category string
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &category, &cents, &month, &b.Year, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	b.Category = core.Category(category)
	b.Limit = core.FromCents(cents)
	b.Month = int(month)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// where accumulates owner-scoped clauses with numbered placeholders.
type where struct {
	clauses []string
	args    []any
}

func newWhere(ownerID string) *where {
	return &where{clauses: []string{"owner_id = $1"}, args: []any{ownerID}}
}

// add appends "<prefix>$n" where n is the next placeholder.
func (w *where) add(prefix string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, prefix+"$"+strconv.Itoa(len(w.args)))
}

// dateRange bounds the date column. Title search is applied in Go after
// the query so matching does not depend on the database collation.
func (w *where) dateRange(r period.Range) {
	r = r.WholeSeconds()
	if !r.From.IsZero() {
		w.add("date >= ", r.From.UTC())
	}
	if !r.To.IsZero() {
		w.add("date <= ", r.To.UTC())
	}
}

func (w *where) String() string {
	return strings.Join(w.clauses, " AND ")
}

func translate(err error, resource string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &core.ConflictError{Resource: resource, Message: "already exists"}
	}
	return fmt.Errorf("write %s: %w", resource, err)
}
