package report

import (
	"slices"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/period"
)

// FeedQuery selects one page of the combined transaction feed. An empty Type
// includes both variants.
type FeedQuery struct {
	Type     core.EntryType
	Range    period.Range
	Search   string
	Page     int
	PageSize int
}

// Validate rejects pages below 1 and page sizes outside 1..maxPageSize.
func (q FeedQuery) Validate(maxPageSize int) error {
	if q.Page < 1 {
		return core.Invalid("page", "must be at least 1")
	}
	if q.PageSize < 1 || (maxPageSize > 0 && q.PageSize > maxPageSize) {
		return core.Invalid("limit", "must be between 1 and %d", maxPageSize)
	}
	if !q.Range.From.IsZero() && !q.Range.To.IsZero() && q.Range.From.After(q.Range.To) {
		return core.Invalid("startDate", "must not be after endDate")
	}
	if _, err := core.ParseEntryType(string(q.Type)); err != nil {
		return err
	}
	return nil
}

// Merge filters both streams by range and title, tags them, sorts the union
// by date desc and returns the requested page. The sort is stable over
// expenses followed by incomes, so on equal dates expenses come first and
// each stream keeps its own order.
func Merge(expenses []core.Expense, incomes []core.Income, q FeedQuery) core.Page[core.Transaction] {
	all := make([]core.Transaction, 0, len(expenses)+len(incomes))
	if q.Type != core.EntryIncome {
		for _, e := range expenses {
			if q.Range.Contains(e.Date) && ledger.MatchesSearch(e.Title, q.Search) {
				all = append(all, core.ExpenseTransaction(e))
			}
		}
	}
	if q.Type != core.EntryExpense {
		for _, i := range incomes {
			if q.Range.Contains(i.Date) && ledger.MatchesSearch(i.Title, q.Search) {
				all = append(all, core.IncomeTransaction(i))
			}
		}
	}

	slices.SortStableFunc(all, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	return Paginate(all, q.Page, q.PageSize)
}

// Paginate returns the 1-based page of items. Total and PageCount describe
// the whole input; a page past the end has no items.
func Paginate[T any](items []T, page, size int) core.Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	total := len(items)
	p := core.Page[T]{
		Items:     []T{},
		Total:     total,
		Page:      page,
		PageCount: (total + size - 1) / size,
	}
	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := min(start+size, total)
	p.Items = append(p.Items, items[start:end]...)
	return p
}
