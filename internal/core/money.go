// Package core holds the ledger entry model, its validation rules and the
// pure aggregation over entries.
//
// Amounts are exact decimals. Parsing accepts both dot (12.34) and comma
// (12,34) decimal separators, as typed into an entry form.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a strictly positive decimal amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("0")     -> ErrInvalidAmount
//	ParseAmount("-3")    -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseUnsigned(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseSplitAmount parses the other party's share, which may be zero.
func ParseSplitAmount(s string) (decimal.Decimal, error) {
	d, err := parseUnsigned(s)
	if err != nil {
		return decimal.Zero, ErrInvalidSplitAmount
	}
	return d, nil
}

// parseUnsigned only admits digits with at most one separator, so signs,
// exponents, NaN and infinities never reach decimal.NewFromString.
func parseUnsigned(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	digits, seps := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			seps++
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if digits == 0 || seps > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromString(s)
}
