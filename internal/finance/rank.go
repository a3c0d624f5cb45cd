package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Share is a project's portion of the total AR, in percent.
type Share struct {
	ProjectID   string
	ProjectName string
	AR          decimal.Decimal
	Percent     decimal.Decimal
}

// TopProfitable returns up to n roll-ups ordered by profit, highest first.
// Equal profits keep their input order.
func TopProfitable(rs []ProjectSummary, n int) []ProjectSummary {
	if n <= 0 {
		return []ProjectSummary{}
	}
	out := append([]ProjectSummary(nil), rs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Profit.GreaterThan(out[j].Profit)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TopLoss returns up to n loss-making roll-ups, most negative profit first.
// Equal profits keep their input order.
func TopLoss(rs []ProjectSummary, n int) []ProjectSummary {
	out := []ProjectSummary{}
	if n <= 0 {
		return out
	}
	for _, r := range rs {
		if r.Profit.IsNegative() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Profit.LessThan(out[j].Profit)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RevenueShare reports each project's AR as a percentage of the summed AR of
// all projects, rounded to two decimals. Shares are rounded independently so
// they need not add up to exactly 100.
func RevenueShare(rs []ProjectSummary) []Share {
	total := decimal.Zero
	for _, r := range rs {
		total = total.Add(r.AR)
	}
	out := make([]Share, 0, len(rs))
	for _, r := range rs {
		out = append(out, Share{
			ProjectID:   r.ProjectID,
			ProjectName: r.ProjectName,
			AR:          r.AR,
			Percent:     Percent(r.AR, total),
		})
	}
	return out
}
