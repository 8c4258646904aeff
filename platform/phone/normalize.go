// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when callers pass an empty region.
const DefaultRegion = "CN"

// Normalize formats a phone number to E.164 using region for numbers
// written without a country code. The boolean reports whether the input
// parsed as a valid number; on failure the trimmed input is returned.
func Normalize(input, region string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", true
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}

// Key returns the comparison key used for duplicate detection: the E.164
// form when the number is valid, otherwise its bare digits.
func Key(input, region string) string {
	normalized, ok := Normalize(input, region)
	if ok {
		return normalized
	}
	return digits(normalized)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
