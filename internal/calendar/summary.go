package calendar

import (
	"regexp"
	"strings"
)

var (
	// "Rex (Tosa)"
	parenSummary = regexp.MustCompile(`^\s*(.+?)\s*\((.+)\)\s*$`)
	// "Banho - Rex", "Banho – Rex", "Hotel: Thor"
	dashSummary = regexp.MustCompile(`^\s*(.+?)(?:\s+[-–—]|\s*:)\s+(.+?)\s*$`)
)

var serviceWords = []string{"banho", "tosa", "hidrata", "consulta", "vacina", "hotel", "creche", "day care", "corte", "escova"}

func looksLikeService(s string) bool {
	s = strings.ToLower(s)
	for _, w := range serviceWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ParseSummary extracts a pet name and a service from an event title.
// Both "Banho - Rex" and "Rex - Banho" are accepted; the side that names a
// known service is taken as the service. A bare title is the pet name.
func ParseSummary(summary string) (pet, service string) {
	summary = strings.TrimSpace(summary)
	if m := parenSummary.FindStringSubmatch(summary); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := dashSummary.FindStringSubmatch(summary); m != nil {
		left, right := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if looksLikeService(right) && !looksLikeService(left) {
			return left, right
		}
		return right, left
	}
	return summary, ""
}
