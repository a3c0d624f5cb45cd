package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
)

// DefaultTrendMonths is the window MonthlyTrend uses when months <= 0.
const DefaultTrendMonths = 6

// TrendPoint is one calendar month of activity.
type TrendPoint struct {
	Month string // YYYY-MM
	Label string // e.g. "Mar 2025"
	Total decimal.Decimal
	Count int
	// ChangePercent is the change against the previous point, rounded to a
	// whole percent. The first point and points after a zero month report 0.
	ChangePercent decimal.Decimal
}

// MonthlyTrend buckets dated transactions by calendar month and returns the
// most recent months in chronological order. With dir AR or AP only that
// side is counted; Neither counts every classified transaction.
func MonthlyTrend(txs []core.Transaction, dir Direction, months int) []TrendPoint {
	if months <= 0 {
		months = DefaultTrendMonths
	}

	buckets := make(map[string]*TrendPoint)
	for _, t := range txs {
		if t.Date.IsEmpty() {
			continue
		}
		c := Classify(t)
		if c == Neither || (dir != Neither && c != dir) {
			continue
		}
		key := t.Date.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &TrendPoint{Month: key, Label: t.Date.Format("Jan 2006"), Total: decimal.Zero}
			buckets[key] = b
		}
		b.Total = b.Total.Add(magnitude(t))
		b.Count++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > months {
		keys = keys[len(keys)-months:]
	}

	out := make([]TrendPoint, 0, len(keys))
	for i, k := range keys {
		p := *buckets[k]
		p.ChangePercent = decimal.Zero
		if i > 0 {
			prev := out[i-1].Total
			if !prev.IsZero() {
				p.ChangePercent = p.Total.Sub(prev).Div(prev).Mul(hundred).Round(0)
			}
		}
		out = append(out, p)
	}
	return out
}
