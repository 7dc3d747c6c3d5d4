// Package money holds currency metadata and minor-unit formatting.
//
// Amounts travel through the engine as int64 minor units (kobo, cents). Decimal
// values only appear at the edges, when an amount is rendered for display.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency is returned for ISO codes the engine does not hold wallets in.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

var exponents = map[string]int32{
	"NGN": 2,
	"USD": 2,
	"GHS": 2,
	"KES": 2,
	"ZAR": 2,
	"EUR": 2,
	"GBP": 2,
	"XAF": 0,
}

// Normalize upper-cases and validates a currency code.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := exponents[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return c, nil
}

// Exponent returns the number of minor-unit digits for a currency.
func Exponent(currency string) int32 {
	if exp, ok := exponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// Format renders minor units as a fixed-point major amount, e.g. 12345 NGN -> "123.45".
func Format(minor int64, currency string) string {
	exp := Exponent(currency)
	return decimal.New(minor, -exp).StringFixed(exp)
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ParseMajor converts a major-unit string ("123.45") to minor units. Amounts with
// more precision than the currency allows are rejected rather than rounded, as
// are amounts that do not fit in int64 minor units.
func ParseMajor(s, currency string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount: %w", err)
	}
	exp := Exponent(currency)
	scaled := d.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", s, exp)
	}
	if scaled.GreaterThan(maxMinor) || scaled.LessThan(minMinor) {
		return 0, fmt.Errorf("amount %s is out of range", s)
	}
	return scaled.IntPart(), nil
}
