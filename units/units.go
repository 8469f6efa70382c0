// Package units converts human-entered token amounts to and from base units.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed precision of the tournament token.
const Decimals = 18

var ErrInvalidAmount = errors.New("invalid amount")

// Only plain non-negative decimals: no sign, no exponent, no separators.
var amountPattern = regexp.MustCompile(`^(?:\d+\.?\d*|\.\d+)$`)

// ParseAmount converts a decimal string such as "10" or "0.25" into base units.
func ParseAmount(text string) (*big.Int, error) {
	return ParseAmountWithDecimals(text, Decimals)
}

// ParseAmountWithDecimals is ParseAmount for a token of arbitrary precision.
func ParseAmountWithDecimals(text string, decimals int32) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if !amountPattern.MatchString(text) {
		return nil, fmt.Errorf("%w: %q is not a non-negative decimal number", ErrInvalidAmount, text)
	}

	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}
	text = strings.TrimSuffix(text, ".")

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, text, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders base units as a decimal string without trailing zeros.
func FormatAmount(base *big.Int) string {
	return FormatAmountWithDecimals(base, Decimals)
}

func FormatAmountWithDecimals(base *big.Int, decimals int32) string {
	if base == nil {
		return "0"
	}
	return decimal.NewFromBigInt(base, -decimals).String()
}
