package textutil

import (
	"sort"
	"strings"
)

// NaturalCompare orders strings so that embedded digit runs compare by
// numeric value rather than lexicographically ("10A" sorts before "125A").
// Non-digit segments compare case-insensitively. Returns -1, 0 or 1.
func NaturalCompare(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]
		if isDigit(ca) && isDigit(cb) {
			numA, lenA := readDigits(ra[i:])
			numB, lenB := readDigits(rb[j:])
			if numA != numB {
				if numA < numB {
					return -1
				}
				return 1
			}
			i += lenA
			j += lenB
			continue
		}
		la, lb := lowerRune(ca), lowerRune(cb)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case i < len(ra):
		return 1
	case j < len(rb):
		return -1
	}
	// Equal ignoring case; fall back to an exact comparison for stability.
	return strings.Compare(a, b)
}

// SortNatural sorts the slice in place using NaturalCompare.
func SortNatural(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		return NaturalCompare(values[i], values[j]) < 0
	})
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func lowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// readDigits consumes a leading digit run, returning its numeric value and
// length. Leading zeros do not affect the comparison value.
func readDigits(runes []rune) (uint64, int) {
	var value uint64
	n := 0
	for n < len(runes) && isDigit(runes[n]) {
		// Saturate instead of overflowing on absurdly long digit runs.
		if value < 1<<56 {
			value = value*10 + uint64(runes[n]-'0')
		}
		n++
	}
	return value, n
}
