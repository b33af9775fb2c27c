// Package report turns raw ledger entries into the derived views: budget
// progress, category summaries, the merged transaction feed and the monthly
// trend. Everything except Engine is a pure function of its inputs.
package report

import (
	"slices"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/period"

	"github.com/shopspring/decimal"
)

// Total is the sum and count of one aggregation bucket.
type Total struct {
	Sum   decimal.Decimal
	Count int
}

// Aggregate groups the entries dated inside rng by key and sums their
// amounts. The range is closed on both ends. Buckets with no entry are absent.
func Aggregate[E core.Entry, K comparable](entries []E, rng period.Range, key func(E) K) map[K]Total {
	out := make(map[K]Total)
	for _, e := range entries {
		if !rng.Contains(e.EntryDate()) {
			continue
		}
		k := key(e)
		t := out[k]
		t.Sum = t.Sum.Add(e.EntryAmount())
		t.Count++
		out[k] = t
	}
	return out
}

// Sum adds the amounts of the entries dated inside rng.
func Sum[E core.Entry](entries []E, rng period.Range) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if rng.Contains(e.EntryDate()) {
			total = total.Add(e.EntryAmount())
		}
	}
	return total
}

// ByCategory is the grouping key for category summaries.
func ByCategory(e core.Expense) core.Category { return e.Category }

// ByMonth returns a grouping key that buckets entries by calendar month
// in loc.
func ByMonth[E core.Entry](loc *time.Location) func(E) period.Month {
	if loc == nil {
		loc = time.UTC
	}
	return func(e E) period.Month { return period.MonthOf(e.EntryDate().In(loc)) }
}

// SortedSummaries orders category totals by total desc, then category name
// asc so equal totals have a stable order.
func SortedSummaries(totals map[core.Category]Total) []core.CategorySummary {
	out := make([]core.CategorySummary, 0, len(totals))
	for c, t := range totals {
		out = append(out, core.CategorySummary{Category: c, Total: t.Sum, Count: t.Count})
	}
	slices.SortFunc(out, func(a, b core.CategorySummary) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})
	return out
}

// SpendByCategory reduces category totals to their sums.
func SpendByCategory(totals map[core.Category]Total) map[core.Category]decimal.Decimal {
	out := make(map[core.Category]decimal.Decimal, len(totals))
	for c, t := range totals {
		out[c] = t.Sum
	}
	return out
}
