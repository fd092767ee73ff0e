package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address after normalization
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(NormalizeEmail(email))
}

// NormalizeEmail lower-cases and trims an email address. Every email that
// reaches a store or directory lookup goes through here; the normalized
// form is the merge anchor for account resolution.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks a candidate password against the minimum length.
// Complexity policy is owned by the identity directory; only the local
// minimum is enforced before calling out.
func ValidatePassword(password string, minLength int) bool {
	return len(password) >= minLength
}
