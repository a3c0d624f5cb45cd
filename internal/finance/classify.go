// Package finance is the AR/AP and profit/loss aggregation engine.
//
// Every function here is pure: it reads the transactions it is given and
// returns freshly allocated results. Nothing is cached and inputs are never
// mutated, so calling a function twice with the same slice yields identical
// output.
package finance

import (
	"strings"

	"orgledger/internal/core"
)

// Direction says which side of the ledger a transaction lands on.
type Direction int

const (
	Neither Direction = iota
	AR
	AP
)

func (d Direction) String() string {
	switch d {
	case AR:
		return "ar"
	case AP:
		return "ap"
	default:
		return "neither"
	}
}

// ParseDirection maps a query value onto a Direction. "profit" and "loss"
// are accepted as the drill-down aliases of AR and AP.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ar", "receivable", "receivables", "profit":
		return AR, true
	case "ap", "payable", "payables", "loss":
		return AP, true
	default:
		return Neither, false
	}
}

// ClassifyType maps a transaction type tag onto a Direction, case-insensitively.
// Unknown or empty tags are Neither.
func ClassifyType(txType string) Direction {
	switch strings.ToLower(strings.TrimSpace(txType)) {
	case "income", "receipt":
		return AR
	case "expense", "payment":
		return AP
	default:
		return Neither
	}
}

// Classify returns the Direction of a transaction.
func Classify(t core.Transaction) Direction {
	return ClassifyType(t.Type)
}
