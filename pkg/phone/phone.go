// Package phone canonicalizes Egyptian mobile numbers and classifies
// operator search input.
package phone

import (
	"regexp"
	"strings"
)

const countryCode = "20"

var (
	localShape    = regexp.MustCompile(`^0\d{10}$`)
	e164Shape     = regexp.MustCompile(`^\+20\d{10}$`)
	bareShape     = regexp.MustCompile(`^20\d{10}$`)
	subscriber    = regexp.MustCompile(`^(10|11|12|15)\d{8}$`)
	publicIDShape = regexp.MustCompile(`^\d{1,6}$`)
)

// SearchKind is how a free-form student search term is dispatched.
type SearchKind string

const (
	SearchPhone    SearchKind = "phone"
	SearchPublicID SearchKind = "public_id"
	SearchText     SearchKind = "free_text"
)

// Digits strips every non-digit character.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEgyptian maps local (01XXXXXXXXX), bare (201XXXXXXXXX) and E.164
// (+201XXXXXXXXX) forms onto +20XXXXXXXXXX. Only the 10, 11, 12 and 15
// mobile prefixes are accepted.
func NormalizeEgyptian(input string) (string, bool) {
	digits := Digits(input)
	if strings.HasPrefix(digits, "0") {
		digits = countryCode + digits[1:]
	}
	if len(digits) != 12 || !strings.HasPrefix(digits, countryCode) {
		return "", false
	}
	if !subscriber.MatchString(digits[2:]) {
		return "", false
	}
	return "+" + digits, true
}

// IsLocal11 reports whether input carries exactly 11 digits once formatting
// is stripped (the payer phone rule for wallet payments).
func IsLocal11(input string) bool {
	return len(Digits(input)) == 11
}

// LooksLikePhone reports whether term has one of the three accepted phone shapes.
func LooksLikePhone(term string) bool {
	raw := strings.TrimSpace(term)
	return localShape.MatchString(raw) || e164Shape.MatchString(raw) || bareShape.MatchString(raw)
}

// ClassifySearchTerm returns the dispatch kind for term. A phone-shaped term
// that does not normalize falls through to the public id and free text rules.
func ClassifySearchTerm(term string) SearchKind {
	raw := strings.TrimSpace(term)
	if LooksLikePhone(raw) {
		if _, ok := NormalizeEgyptian(raw); ok {
			return SearchPhone
		}
	}
	if publicIDShape.MatchString(raw) {
		return SearchPublicID
	}
	return SearchText
}
