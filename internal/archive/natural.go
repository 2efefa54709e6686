package archive

import (
	"slices"
	"strings"
)

// Compare orders member names naturally: names are split into maximal runs of
// ASCII digits and non-digits and compared run by run. Two digit runs compare
// by integer value, any other pair byte-wise. A name with fewer runs is padded
// with empty runs, and the empty run sorts before anything else. Names whose
// runs all tie ("01" and "1") fall back to byte order, so Compare is a total
// order and returns 0 only for identical names.
func Compare(a, b string) int {
	ra, rb := splitRuns(a), splitRuns(b)

	n := max(len(ra), len(rb))
	for i := 0; i < n; i++ {
		var pa, pb string
		if i < len(ra) {
			pa = ra[i]
		}
		if i < len(rb) {
			pb = rb[i]
		}
		if c := compareRun(pa, pb); c != 0 {
			return c
		}
	}

	return strings.Compare(a, b)
}

// SortNatural sorts names in place using Compare.
func SortNatural(names []string) {
	slices.SortStableFunc(names, Compare)
}

func compareRun(a, b string) int {
	if isDigits(a) && isDigits(b) {
		return compareNumeric(a, b)
	}
	return strings.Compare(a, b)
}

// compareNumeric compares two digit strings by value without parsing, so
// runs longer than any integer type still order correctly.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func splitRuns(s string) []string {
	if s == "" {
		return nil
	}

	runs := make([]string, 0, 4)
	start := 0
	digit := isDigit(s[0])
	for i := 1; i < len(s); i++ {
		if d := isDigit(s[i]); d != digit {
			runs = append(runs, s[start:i])
			start = i
			digit = d
		}
	}
	return append(runs, s[start:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
