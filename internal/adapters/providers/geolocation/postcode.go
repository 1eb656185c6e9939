package geolocation

import (
	"regexp"
	"strings"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	outwardCode = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?`)
)

// NormalizePostcode turns '+' into spaces, collapses runs of whitespace, trims and
// upper-cases. The single internal space, if any, is kept.
func NormalizePostcode(raw string) string {
	s := strings.ReplaceAll(raw, "+", " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// CompactPostcode removes every space from an already normalized postcode.
func CompactPostcode(normalized string) string {
	return strings.ReplaceAll(normalized, " ", "")
}

// OutwardCode extracts the postal-area prefix ("BN21" from "BN21 4YB").
func OutwardCode(normalized string) (string, bool) {
	m := outwardCode.FindString(normalized)
	return m, m != ""
}
