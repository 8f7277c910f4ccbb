package numeric

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for empty, non-numeric or otherwise
// malformed amount strings.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse parses an amount string into an exact decimal. Scientific
// notation ("2.014e18") is accepted; the coefficient and exponent are
// combined without ever going through binary floating point.
func Parse(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" || raw != strings.TrimSpace(raw) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePlain parses an amount string, rejecting scientific notation.
// Amounts taken from "amount"/"tx_amount" query parameters must never
// be interpreted through an exponent form.
func ParsePlain(raw string) (decimal.Decimal, error) {
	if HasExponent(raw) {
		return decimal.Zero, ErrInvalidAmount
	}
	return Parse(raw)
}

// HasExponent reports whether raw is written in scientific notation.
func HasExponent(raw string) bool {
	return strings.ContainsAny(raw, "eE")
}

// FromAtomic converts an amount denominated in a chain's smallest unit
// into its human decimal form, dividing by 10^decimals. The raw string
// may itself carry an exponent ("1.697e16").
func FromAtomic(raw string, decimals int32) (decimal.Decimal, error) {
	d, err := Parse(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-decimals), nil
}

// FitsPrecision reports whether amount has no more fractional digits
// than the token's precision allows.
func FitsPrecision(amount decimal.Decimal, precision int32) bool {
	return amount.Equal(amount.Truncate(precision))
}

// MinimalUnit returns the smallest representable amount for a token
// with the given precision, 10^-precision.
func MinimalUnit(precision int32) decimal.Decimal {
	return decimal.New(1, -precision)
}
