package finance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
)

var hundred = decimal.NewFromInt(100)

// CategoryAmount is one line of a category breakdown.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// magnitude is the non-negative amount a transaction contributes.
func magnitude(t core.Transaction) decimal.Decimal {
	return t.Amount.Abs()
}

func categoryOf(t core.Transaction) string {
	c := strings.TrimSpace(t.Category)
	if c == "" {
		return core.DefaultCategory
	}
	return c
}

// Totals sums the AR and AP magnitudes of txs. Unclassified transactions
// contribute to neither.
func Totals(txs []core.Transaction) (ar, ap decimal.Decimal) {
	ar, ap = decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch Classify(t) {
		case AR:
			ar = ar.Add(magnitude(t))
		case AP:
			ap = ap.Add(magnitude(t))
		}
	}
	return ar, ap
}

// AggregateByCategory sums the transactions classified as dir, grouped by
// category. A blank category is reported as core.DefaultCategory. The
// result is empty, never nil, when nothing matches.
func AggregateByCategory(txs []core.Transaction, dir Direction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	if dir == Neither {
		return out
	}
	for _, t := range txs {
		if Classify(t) != dir {
			continue
		}
		cat := categoryOf(t)
		out[cat] = out[cat].Add(magnitude(t))
	}
	return out
}

// SortCategories flattens a breakdown into lines ordered by amount
// descending, then by category name.
func SortCategories(m map[string]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for cat, amt := range m {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Percent returns part/whole*100 rounded to two decimals, or zero when
// whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
