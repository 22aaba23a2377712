package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	nonDigitRegex = regexp.MustCompile(`[^\d+]`)
)

func IsValidPhone(phone string) bool {
	cleaned := nonDigitRegex.ReplaceAllString(phone, "")
	return phoneRegex.MatchString(cleaned)
}

// NormalizePhone strips separators and ensures a leading +, converting a
// national 07x number to the default country code.
func NormalizePhone(phone string) string {
	normalized := nonDigitRegex.ReplaceAllString(phone, "")
	if strings.HasPrefix(normalized, "+") {
		return normalized
	}
	if strings.HasPrefix(normalized, "0") {
		return DefaultCountryCode + normalized[1:]
	}
	return "+" + normalized
}

func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
