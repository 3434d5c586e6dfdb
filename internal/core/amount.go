// Package core provides the ledger domain types and parsing helpers.
//
// This file contains parsing of amounts and dates from user or file input.
// Amounts use invariant conventions: a dot decimal separator and plain
// ASCII digits, never locale-dependent grouping.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal literal.
//
// Examples:
//
//	ParseAmount("-1500")   -> -1500
//	ParseAmount("12.34")   -> 12.34
//	ParseAmount("0")       -> 0 (zero amounts are legal)
//	ParseAmount("12,34")   -> error (no locale separators)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseDate parses a "2006-01-02" calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}
