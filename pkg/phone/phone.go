// Package phone normalizes Brazilian WhatsApp numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// Normalize parses raw as a Brazilian number, dropping the trunk prefix and
// any carrier selection code, and returns it as E.164 digits without the
// plus sign. "(11) 98765-4321" becomes "5511987654321". Numbers written
// with another country code keep it. Invalid input returns "".
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+")
}

// Valid reports whether raw normalizes to a dialable number.
func Valid(raw string) bool {
	return Normalize(raw) != ""
}
