package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`[ \t]+`)
)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// SanitizeMessage strips markup and collapses runs of whitespace before a
// message body is scanned and persisted.
func SanitizeMessage(input string) string {
	cleaned := htmlTagRegex.ReplaceAllString(input, "")
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ValidateSeats bounds a requested seat count, falling back to the
// default for nonsense values.
func ValidateSeats(seats int) int {
	if seats < 1 {
		return DefaultSeats
	}
	if seats > MaxSeats {
		return MaxSeats
	}
	return seats
}
