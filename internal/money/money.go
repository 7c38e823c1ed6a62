// Package money holds the fixed-point helpers shared by every component that
// touches an amount: two fractional digits, rounded half-up.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every amount.
const Scale = 2

var ErrInvalidFormat = errors.New("invalid amount format")

// Round scales d to two decimals, half-up (half away from zero for negatives,
// which never occur for stored amounts).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// String renders d with exactly two fractional digits: "12.30".
func String(d decimal.Decimal) string {
	return Round(d).StringFixed(Scale)
}

// Format renders d for humans: "$12.34", "-$0.50".
func Format(d decimal.Decimal) string {
	d = Round(d)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(Scale)
	}

	return "$" + d.StringFixed(Scale)
}

// Parse reads a plain decimal with at most two fractional digits.
// Signs are accepted; positivity is the caller's rule.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidFormat)
	}

	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: exponent not allowed", ErrInvalidFormat)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	if d.Exponent() < -Scale && !d.Equal(Round(d)) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimals", ErrInvalidFormat, Scale)
	}

	return Round(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return d
}

// Sum adds amounts and rounds once at the end.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}

	return Round(total)
}
