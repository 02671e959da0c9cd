package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Fold normalizes free-text search input so that full-width, half-width and
// mixed-case variants of the same term compare equal. Applies NFKC
// normalization, width folding and lower-casing, then trims whitespace.
func Fold(value string) string {
	folded := width.Fold.String(norm.NFKC.String(value))
	return strings.TrimSpace(strings.ToLower(folded))
}

// ContainsFold reports whether haystack contains needle after folding both.
// An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Fold(haystack), n)
}
