package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a student settles a reservation.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodVodafoneCash PaymentMethod = "vodafone_cash"
	PaymentMethodInstapay     PaymentMethod = "instapay"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodVodafoneCash,
	PaymentMethodInstapay,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresProof reports whether the method needs a payer phone and a proof upload.
func (p PaymentMethod) RequiresProof() bool {
	return p == PaymentMethodVodafoneCash || p == PaymentMethodInstapay
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// NormalizePaymentMethod maps loose labels ("Vodafone Cash", "insta-pay")
// onto a PaymentMethod. Unknown or empty input is cash.
func NormalizePaymentMethod(value string) PaymentMethod {
	s := strings.ToLower(value)
	s = strings.NewReplacer(" ", "", "_", "", "-", "", "\t", "").Replace(s)
	switch {
	case strings.Contains(s, "voda"):
		return PaymentMethodVodafoneCash
	case strings.Contains(s, "insta"):
		return PaymentMethodInstapay
	default:
		return PaymentMethodCash
	}
}
