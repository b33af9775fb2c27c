// Package storage is the SQLite ledger.Store. Amounts are stored as integer
// cents and dates as unix seconds.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/period"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; one connection serializes upserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const expenseColumns = `id, owner_id, title, amount_cents, category, description, date, created_at`

func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string, f ledger.ExpenseFilter) ([]core.Expense, error) {
	w := newWhere(ownerID)
	w.dateRange(f.Range)
	if f.Category != "" {
		w.add("category = ?", string(f.Category))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + w.String() +
		` ORDER BY date DESC, created_at DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		if ledger.MatchesSearch(e.Title, f.Search) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", id)
	}
	return e, err
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = ledger.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	e.CreatedAt = e.CreatedAt.Truncate(time.Second)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Title, core.ToCents(e.Amount), string(e.Category), e.Description,
		e.Date.Unix(), e.CreatedAt.Unix())
	if err != nil {
		return core.Expense{}, translate(err, "expense")
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldEntryID, e.ID,
		log.FieldOwnerID, e.OwnerID)
	return r.GetExpense(ctx, e.OwnerID, e.ID)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET title = ?, amount_cents = ?, category = ?, description = ?, date = ?
		 WHERE id = ? AND owner_id = ?`,
		e.Title, core.ToCents(e.Amount), string(e.Category), e.Description, e.Date.Unix(),
		e.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, translate(err, "expense")
	}
	if err := expectOneRow(res, "expense", e.ID); err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, e.OwnerID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOneRow(res, "expense", id)
}

const incomeColumns = `id, owner_id, title, amount_cents, source, frequency, is_recurring, description, date, created_at`

func (r *SQLiteRepository) ListIncomes(ctx context.Context, ownerID string, f ledger.IncomeFilter) ([]core.Income, error) {
	w := newWhere(ownerID)
	w.dateRange(f.Range)
	if f.Source != "" {
		w.add("source = ?", string(f.Source))
	}

	query := `SELECT ` + incomeColumns + ` FROM incomes WHERE ` + w.String() +
		` ORDER BY date DESC, created_at DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	out := make([]core.Income, 0)
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		if ledger.MatchesSearch(i.Title, f.Search) {
			out = append(out, i)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomes: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, ownerID, id string) (core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND owner_id = ?`, id, ownerID)
	i, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.NotFound("income", id)
	}
	return i, err
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	if i.ID == "" {
		i.ID = ledger.NewID()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = r.now()
	}
	i.CreatedAt = i.CreatedAt.Truncate(time.Second)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (`+incomeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.OwnerID, i.Title, core.ToCents(i.Amount), string(i.Source), string(i.Frequency),
		i.IsRecurring, i.Description, i.Date.Unix(), i.CreatedAt.Unix())
	if err != nil {
		return core.Income{}, translate(err, "income")
	}
	return r.GetIncome(ctx, i.OwnerID, i.ID)
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes SET title = ?, amount_cents = ?, source = ?, frequency = ?, is_recurring = ?,
		 description = ?, date = ? WHERE id = ? AND owner_id = ?`,
		i.Title, core.ToCents(i.Amount), string(i.Source), string(i.Frequency), i.IsRecurring,
		i.Description, i.Date.Unix(), i.ID, i.OwnerID)
	if err != nil {
		return core.Income{}, translate(err, "income")
	}
	if err := expectOneRow(res, "income", i.ID); err != nil {
		return core.Income{}, err
	}
	return r.GetIncome(ctx, i.OwnerID, i.ID)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return expectOneRow(res, "income", id)
}

const budgetColumns = `id, owner_id, category, limit_cents, month, year, created_at, updated_at`

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? AND month = ? AND year = ? ORDER BY category`,
		ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// UpsertBudget relies on the (owner_id, category, month, year) unique
// constraint so that insert-or-update is a single statement.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, key core.BudgetKey, limit decimal.Decimal) (core.Budget, error) {
	now := r.now().Unix()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, category, month, year)
		 DO UPDATE SET limit_cents = excluded.limit_cents, updated_at = excluded.updated_at
		 RETURNING `+budgetColumns,
		ledger.NewID(), key.OwnerID, string(key.Category), core.ToCents(limit), key.Month, key.Year, now, now)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectOneRow(res, "budget", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                   core.Expense
		cents, date, create int64
		category            string
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Title, &cents, &category, &e.Description, &date, &create); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount = core.FromCents(cents)
	e.Category = core.Category(category)
	e.Date = time.Unix(date, 0).UTC()
	e.CreatedAt = time.Unix(create, 0).UTC()
	return e, nil
}

func scanIncome(s scanner) (core.Income, error) {
	var (
		i                   core.Income
		cents, date, create int64
		source, frequency   string
	)
	if err := s.Scan(&i.ID, &i.OwnerID, &i.Title, &cents, &source, &frequency, &i.IsRecurring,
		&i.Description, &date, &create); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return i, err
		}
		return i, fmt.Errorf("scan income: %w", err)
	}
	i.Amount = core.FromCents(cents)
	i.Source = core.Source(source)
	i.Frequency = core.Frequency(frequency)
	i.Date = time.Unix(date, 0).UTC()
	i.CreatedAt = time.Unix(create, 0).UTC()
	return i, nil
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                      core.Budget
		cents, create, updated int64
		category               string
	)
	if err := s.Scan(&b.ID, &b.OwnerID, &category, &cents, &b.Month, &b.Year, &create, &updated); err != nil {
		return b, fmt.Errorf("scan budget: %w", err)
	}
	b.Category = core.Category(category)
	b.Limit = core.FromCents(cents)
	b.CreatedAt = time.Unix(create, 0).UTC()
	b.UpdatedAt = time.Unix(updated, 0).UTC()
	return b, nil
}

// where accumulates owner-scoped filter clauses and their arguments.
type where struct {
	clauses []string
	args    []any
}

func newWhere(ownerID string) *where {
	return &where{clauses: []string{"owner_id = ?"}, args: []any{ownerID}}
}

func (w *where) add(clause string, arg any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, arg)
}

// dateRange bounds the unix-second date column. Title search is applied
// after scanning since SQLite's lower() only folds ASCII.
func (w *where) dateRange(r period.Range) {
	r = r.WholeSeconds()
	if !r.From.IsZero() {
		w.add("date >= ?", r.From.Unix())
	}
	if !r.To.IsZero() {
		w.add("date <= ?", r.To.Unix())
	}
}

func (w *where) String() string {
	return strings.Join(w.clauses, " AND ")
}

func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound(resource, id)
	}
	return nil
}

// translate maps constraint violations to ConflictError.
func translate(err error, resource string) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return &core.ConflictError{Resource: resource, Message: "already exists"}
		}
	}
	return fmt.Errorf("write %s: %w", resource, err)
}
