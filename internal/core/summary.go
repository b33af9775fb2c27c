package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetProgress is a budget joined with the spending recorded against it.
// Remaining is negative when the budget is overspent.
type BudgetProgress struct {
	Budget
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage float64         `json:"percentage"`
}

// CategorySummary is the spending total of one category over a period.
type CategorySummary struct {
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Transaction is the tagged union of Expense and Income used by the combined
// feed. Variant specific fields are nil for the other variant.
type Transaction struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Type        EntryType       `json:"type"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	Category    *Category       `json:"category"`
	Source      *Source         `json:"source"`
	Frequency   *Frequency      `json:"frequency"`
	IsRecurring *bool           `json:"is_recurring"`
}

// TrendPoint holds one month of the rolling income/expense series.
type TrendPoint struct {
	Month       string          `json:"month"`
	MonthNumber int             `json:"month_number"`
	Year        int             `json:"year"`
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
}

// Dashboard is the summary returned by the dashboard view.
type Dashboard struct {
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	MonthExpenses decimal.Decimal `json:"month_expenses"`
	MonthIncome   decimal.Decimal `json:"month_income"`
	Savings       decimal.Decimal `json:"savings"`
	Trend         []TrendPoint    `json:"trend"`
}

// Page is one slice of a paginated result. Total and PageCount describe the
// full filtered result, not the slice.
type Page[T any] struct {
	Items     []T `json:"items"`
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageCount int `json:"page_count"`
}

func ExpenseTransaction(e Expense) Transaction {
	category := e.Category
	return Transaction{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Type:        EntryExpense,
		Title:       e.Title,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
		Category:    &category,
	}
}

func IncomeTransaction(i Income) Transaction {
	source, frequency, recurring := i.Source, i.Frequency, i.IsRecurring
	return Transaction{
		ID:          i.ID,
		OwnerID:     i.OwnerID,
		Type:        EntryIncome,
		Title:       i.Title,
		Amount:      i.Amount,
		Description: i.Description,
		Date:        i.Date,
		CreatedAt:   i.CreatedAt,
		Source:      &source,
		Frequency:   &frequency,
		IsRecurring: &recurring,
	}
}
