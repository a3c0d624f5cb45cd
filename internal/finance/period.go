package finance

import (
	"fmt"
	"strings"
	"time"

	"orgledger/internal/core"
)

type PeriodKind string

const (
	PeriodAll     PeriodKind = "all"
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodQ1      PeriodKind = "q1"
	PeriodQ2      PeriodKind = "q2"
	PeriodQ3      PeriodKind = "q3"
	PeriodQ4      PeriodKind = "q4"
	PeriodYear    PeriodKind = "year"
	PeriodCustom  PeriodKind = "custom"
)

// Period selects a window of transactions. Start and End are only used by
// PeriodCustom; either may be empty to leave that side open.
type Period struct {
	Kind  PeriodKind
	Start core.Date
	End   core.Date
}

// ParsePeriod builds a Period from query values. An empty kind means all.
func ParsePeriod(kind, start, end string) (Period, error) {
	k := PeriodKind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case "":
		return Period{Kind: PeriodAll}, nil
	case PeriodAll, PeriodMonth, PeriodQuarter, PeriodQ1, PeriodQ2, PeriodQ3, PeriodQ4, PeriodYear:
		return Period{Kind: k}, nil
	case PeriodCustom, "daterange":
		s, err := core.ParseDate(start)
		if err != nil {
			return Period{}, fmt.Errorf("invalid start date: %w", err)
		}
		e, err := core.ParseDate(end)
		if err != nil {
			return Period{}, fmt.Errorf("invalid end date: %w", err)
		}
		if !s.IsEmpty() && !e.IsEmpty() && e.Before(s.Time) {
			return Period{}, fmt.Errorf("end date %s is before start date %s", e, s)
		}
		return Period{Kind: PeriodCustom, Start: s, End: e}, nil
	default:
		return Period{}, fmt.Errorf("unknown period %q", kind)
	}
}

// latestDate returns the most recent transaction date, or the zero Date.
func latestDate(txs []core.Transaction) core.Date {
	var latest core.Date
	for _, t := range txs {
		if t.Date.After(latest.Time) {
			latest = t.Date
		}
	}
	return latest
}

func quarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// FilterByPeriod keeps the transactions that fall inside p. Relative periods
// are anchored on the most recent transaction date: "month" is that month,
// "quarter" its quarter and q1..q4 and "year" refer to its year. Undated
// transactions are kept for every period except custom ranges.
func FilterByPeriod(txs []core.Transaction, p Period) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	if p.Kind == "" || p.Kind == PeriodAll {
		return append(out, txs...)
	}

	ref := latestDate(txs)
	in := func(d core.Date) bool {
		switch p.Kind {
		case PeriodMonth:
			return d.Year() == ref.Year() && d.Month() == ref.Month()
		case PeriodQuarter:
			return d.Year() == ref.Year() && quarterOf(d.Month()) == quarterOf(ref.Month())
		case PeriodQ1, PeriodQ2, PeriodQ3, PeriodQ4:
			q := int(p.Kind[1] - '0')
			return d.Year() == ref.Year() && quarterOf(d.Month()) == q
		case PeriodYear:
			return d.Year() == ref.Year()
		case PeriodCustom:
			if !p.Start.IsEmpty() && d.Before(p.Start.Time) {
				return false
			}
			if !p.End.IsEmpty() && d.After(p.End.Time) {
				return false
			}
			return true
		}
		return true
	}

	for _, t := range txs {
		if t.Date.IsEmpty() {
			if p.Kind != PeriodCustom {
				out = append(out, t)
			}
			continue
		}
		if in(t.Date) {
			out = append(out, t)
		}
	}
	return out
}
