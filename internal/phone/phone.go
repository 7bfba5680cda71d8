// Package phone normalizes the free-format phone numbers stored on orders.
// Stored numbers may carry spaces, dashes, or country codes; nothing in the
// system ever assumes they are normalized.
package phone

import "strings"

// suffixLen is the length of the local-number suffix used as the correlation
// key between an inbound sender and a stored order phone.
const suffixLen = 10

// Digits strips every non-digit character from raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SuffixKey reduces raw to its last ten digits. Shorter numbers degrade to
// the full digit string rather than erroring.
func SuffixKey(raw string) string {
	digits := Digits(raw)
	if len(digits) > suffixLen {
		return digits[len(digits)-suffixLen:]
	}
	return digits
}

// Recipient normalizes raw into a send-ready recipient: digits only, with
// defaultCountryCode prepended when the number is exactly ten local digits.
// Anything else passes through unchanged. An empty result means the number
// is unusable.
func Recipient(raw, defaultCountryCode string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	if len(digits) == suffixLen && defaultCountryCode != "" {
		return defaultCountryCode + digits
	}
	return digits
}
