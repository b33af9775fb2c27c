package report

import (
	"time"

	"fintrack/internal/core"
	"fintrack/internal/period"

	"github.com/shopspring/decimal"
)

// TrendMonths is the length of the dashboard trend.
const TrendMonths = 6

// Trend builds n points, oldest first, ending with the month of anchor.
// Months missing from the totals report zero.
func Trend(n int, anchor time.Time, expenses, incomes map[period.Month]Total) []core.TrendPoint {
	months := period.TrailingMonths(n, anchor)
	out := make([]core.TrendPoint, 0, len(months))
	for _, m := range months {
		out = append(out, core.TrendPoint{
			Month:       m.Label(),
			MonthNumber: int(m.Month),
			Year:        m.Year,
			Income:      sumOrZero(incomes[m]),
			Expenses:    sumOrZero(expenses[m]),
		})
	}
	return out
}

func sumOrZero(t Total) decimal.Decimal {
	if t.Count == 0 {
		return decimal.Zero
	}
	return t.Sum
}
