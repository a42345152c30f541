// Package money converts between operator-entered EGP amounts and the
// integer cents the remote API stores.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CentsFromEGP parses free-form EGP input ("150", "150.5", "EGP 1,200.75")
// into cents. Anything that is not a single decimal number yields 0.
func CentsFromEGP(input string) int64 {
	var b strings.Builder
	for _, r := range input {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return amount.Shift(2).Round(0).IntPart()
}

// FormatEGP renders cents as a two-decimal EGP amount.
func FormatEGP(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}

// Total returns unit price times quantity. Non-positive quantities yield 0.
func Total(unitCents int64, qty int) int64 {
	if qty <= 0 {
		return 0
	}
	return unitCents * int64(qty)
}

// CapDeposit clamps a requested deposit into [0, total]. capped reports
// whether the request exceeded the total.
func CapDeposit(requested, total int64) (deposit int64, capped bool) {
	if requested < 0 {
		return 0, false
	}
	if total < 0 {
		total = 0
	}
	if requested > total {
		return total, true
	}
	return requested, false
}
