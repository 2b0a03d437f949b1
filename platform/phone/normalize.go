// Package phone normalizes phone numbers to E.164 format.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers without a country prefix.
const DefaultRegion = "US"

// Normalize parses raw input and returns the E.164 representation.
// Returns the input unchanged with ok=false when the number cannot
// be parsed or is not a valid number for its region.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw, false
	}

	num, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return raw, false
	}
	if !phonenumbers.IsValidNumber(num) {
		return raw, false
	}

	return phonenumbers.Format(num, phonenumbers.E164), true
}

// IsValid reports whether raw parses as a valid phone number.
func IsValid(raw string) bool {
	_, ok := Normalize(raw)
	return ok
}
