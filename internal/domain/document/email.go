package document

import "strings"

// NormalizeEmail lowercases and trims an email. Ownership checks compare
// normalized values so casing differences between identity providers and
// payloads do not matter.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail reports whether a and b name the same non-empty address.
func SameEmail(a, b string) bool {
	a = NormalizeEmail(a)
	return a != "" && a == NormalizeEmail(b)
}
