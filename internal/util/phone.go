package util

import (
	"regexp"
	"strings"
)

var nonPhone = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone strips formatting noise and converts the 00 international
// prefix into +. Anything else is passed through as the caller sent it;
// carriers validate the final number.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonPhone.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}

	return s
}

// SplitDestinations parses a comma-joined destination list into normalized
// phone numbers, dropping empties.
func SplitDestinations(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := NormalizePhone(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
