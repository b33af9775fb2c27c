package report

import (
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeProgress joins budgets with the spending of their category. Output
// order follows budgets.
func ComputeProgress(budgets []core.Budget, spend map[core.Category]decimal.Decimal) []core.BudgetProgress {
	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		spent, ok := spend[b.Category]
		if !ok {
			spent = decimal.Zero
		}
		out = append(out, core.BudgetProgress{
			Budget:     b,
			Spent:      spent,
			Remaining:  b.Limit.Sub(spent),
			Percentage: Percentage(spent, b.Limit),
		})
	}
	return out
}

// Percentage returns spent as a share of limit, capped at 100 and rounded to
// one decimal. A zero limit reports 100 once anything is spent, 0 otherwise.
func Percentage(spent, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		if spent.IsPositive() {
			return 100
		}
		return 0
	}
	p := spent.Mul(hundred).Div(limit)
	if p.GreaterThan(hundred) {
		p = hundred
	}
	if p.IsNegative() {
		p = decimal.Zero
	}
	return p.Round(1).InexactFloat64()
}
