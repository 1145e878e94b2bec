package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxNameLength     = 255
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPassword checks the password length. Volunteers sign up from
// phones, so no character classes are enforced.
func IsValidPassword(password string) (bool, string) {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return false, "Password must be at least 6 characters"
	}
	if n > MaxPasswordLength {
		return false, "Password must be at most 128 characters"
	}
	if strings.TrimSpace(password) == "" {
		return false, "Password must not be blank"
	}
	return true, ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// CleanName prepares a user supplied label (project, team, function, person)
// for storage: control characters are dropped, surrounding space trimmed and
// the result capped at MaxNameLength runes.
func CleanName(s string) string {
	return TruncateString(strings.TrimSpace(SanitizeString(s)), MaxNameLength)
}

// TruncateString truncates a string to maxLen runes
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
