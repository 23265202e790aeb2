// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultCountryPrefix is prepended to bare 10-digit national numbers.
const DefaultCountryPrefix = "+1"

const defaultRegion = "US"

var dialablePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// SanitizeToDialable converts a loosely formatted number into dialable form:
// a leading "+" followed by digits only.
//
//	"+1 (555) 123-4567" -> "+15551234567"
//	"5551234567"        -> "+15551234567"
//	"15551234567"       -> "+15551234567"
//
// Anything else is prefixed with "+" as a best effort; IsValidDialable decides
// whether the result can be dialed.
func SanitizeToDialable(input string) string {
	trimmed := strings.TrimSpace(input)
	hasPlus := strings.HasPrefix(trimmed, "+")
	digits := Digits(trimmed)

	if hasPlus {
		return "+" + digits
	}
	if len(digits) == 10 {
		return DefaultCountryPrefix + digits
	}
	return "+" + digits
}

// IsValidDialable reports whether s is "+" followed by 2 to 15 digits without a leading zero.
func IsValidDialable(s string) bool {
	return dialablePattern.MatchString(s)
}

// Digits returns only the ASCII digits of input.
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

// StripPlus removes the first "+" from the number, leaving everything else untouched.
func StripPlus(input string) string {
	return strings.Replace(input, "+", "", 1)
}

// Last10Digits returns the trailing ten digits of input, or all digits when there are fewer.
func Last10Digits(input string) string {
	digits := Digits(input)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}

// minNationalDigits is the shortest national number MatchDigits will search on.
const minNationalDigits = 7

// MatchDigits returns the digits the loose lookup compares as a suffix of stored
// numbers: the national significant number when the input parses, otherwise the
// trailing ten digits. For NANP numbers both are the same ten digits.
//
//	"+1 (555) 123-4567" -> "5551234567"
//	"+49 30 1234567"    -> "301234567"
func MatchDigits(input string) string {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), defaultRegion)
	if err == nil {
		nsn := phonenumbers.GetNationalSignificantNumber(number)
		if len(nsn) >= minNationalDigits && len(nsn) <= 10 {
			return nsn
		}
	}
	return Last10Digits(input)
}

// Inspect reports the numbering-plan region of a dialable number and whether the
// number is assigned in that plan. Fictional ranges such as 555 parse but are not valid.
func Inspect(dialable string) (region string, planValid bool) {
	number, err := phonenumbers.Parse(dialable, defaultRegion)
	if err != nil {
		return "", false
	}
	return phonenumbers.GetRegionCodeForNumber(number), phonenumbers.IsValidNumber(number)
}
