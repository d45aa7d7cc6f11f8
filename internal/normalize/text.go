// Package normalize converts loosely formatted source values into canonical grant fields.
// Everything here is pure; invalid input yields an absent value, never an error.
package normalize

import (
	"strings"

	"golang.org/x/text/width"
)

// Fold maps full-width digits, latin letters and punctuation to their ASCII
// forms so the same patterns match both "２０２５年" and "2025年".
func Fold(s string) string {
	return width.Fold.String(s)
}

// CleanText collapses runs of whitespace and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// OptionalText returns nil for blank text.
func OptionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
