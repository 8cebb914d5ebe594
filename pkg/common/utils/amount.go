package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a smallest-unit token amount as a human-readable
// decimal string, e.g. FormatAmount(1_500_000, 6) == "1.5".
func FormatAmount(amount int64, decimals int32) string {
	return decimal.New(amount, -decimals).String()
}

// ParseAmount converts a human-readable decimal string into smallest units.
// Fractions beyond the token's precision are rejected rather than truncated.
func ParseAmount(s string, decimals int32) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", s, decimals)
	}
	return scaled.IntPart(), nil
}
