// Package core provides money parsing and handling utilities.
//
// Amounts are carried as shopspring decimals so that sums of many
// spreadsheet rows never drift the way float64 accumulation does.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a free-form amount string, as found in uploaded
// spreadsheets, into a decimal.
//
// It strips currency symbols, whitespace and thousands separators, accepts
// both dot (1234.56) and comma (1234,56) decimal separators, and treats an
// accounting-style "(12.00)" as negative. The sign is preserved; callers
// that want a magnitude take Abs themselves.
//
// Examples:
//
//	ParseAmount("1,234.50") -> 1234.5
//	ParseAmount("1.234,50") -> 1234.5
//	ParseAmount("€ 12,34")  -> 12.34
//	ParseAmount("(40)")     -> -40
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	// Keep digits, separators and sign only
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-', r == '+':
			return r
		default:
			return -1
		}
	}, s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator
// and thousands separators are gone.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Whichever comes last is the decimal separator
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		// "1,234" and "1,234,567" group thousands; "12,34" is a decimal comma
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
