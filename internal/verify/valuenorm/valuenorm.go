// Package valuenorm parses OCR-dirty currency, percentage, reference, and
// account strings into canonical values and validates them against a case
// model value under the per-type tolerance rules.
//
// Grounded on the teacher's own content-to-value conventions in
// internal/pdf/redact/search.go (proportional text handling, substring
// trimming) for the general shape of "clean then compare", and on
// bosocmputer-account_ocr_gemini's Levenshtein-based fuzzy matching
// (internal/processor/template_matcher.go) for the edit-distance rules used
// on account numbers.
package valuenorm

import (
	"strconv"
	"strings"
)

// digitSubs is the OCR digit-confusion substitution table applied before
// parsing any numeric field. Every key is a single non-digit character, so
// the order of the entries does not change the result.
var digitSubs = []struct{ from, to string }{
	{"O", "0"}, {"o", "0"},
	{"l", "1"}, {"I", "1"}, {"|", "1"},
	{"S", "5"}, {"s", "5"},
	{"B", "8"},
	{"Z", "2"}, {"z", "2"},
	{"G", "6"},
}

func applyDigitSubs(s string) string {
	for _, sub := range digitSubs {
		s = strings.ReplaceAll(s, sub.from, sub.to)
	}
	return s
}

// ParseCurrency strips the "R" marker and whitespace, applies OCR digit
// substitution, then resolves the thousands/decimal separator ambiguity per
// South African conventions:
//   - both " " and "," present with a <=2 digit suffix: space is thousands,
//     comma is decimal
//   - only "," present with a 2-digit suffix: comma is decimal
//   - otherwise: comma is thousands, period is decimal
func ParseCurrency(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R")
	s = strings.TrimSpace(s)
	s = applyDigitSubs(s)

	hasSpace := strings.Contains(s, " ")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasSpace && hasComma:
		if suffixLen(s, ",") <= 2 {
			s = strings.ReplaceAll(s, " ", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, " ", "")
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma && !hasSpace:
		if suffixLen(s, ",") == 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// suffixLen returns how many digits follow the last occurrence of sep.
func suffixLen(s, sep string) int {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return 0
	}
	n := 0
	for _, r := range s[idx+len(sep):] {
		if r < '0' || r > '9' {
			break
		}
		n++
	}
	return n
}

// ParsePercentage strips "%" and whitespace, applies digit substitution, and
// treats comma as a decimal separator.
func ParsePercentage(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	s = applyDigitSubs(s)
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseReference extracts digits-only content after substitution and sanity
// checks the resulting length (10-11 digits for a reference number).
func ParseReference(raw string) (string, bool) {
	digits := digitsOnly(applyDigitSubs(raw))
	if len(digits) < 10 || len(digits) > 11 {
		return digits, false
	}
	return digits, true
}

// ParseAccount extracts digits-only content after substitution and sanity
// checks the resulting length (6-12 digits for an account number).
func ParseAccount(raw string) (string, bool) {
	digits := digitsOnly(applyDigitSubs(raw))
	if len(digits) < 6 || len(digits) > 12 {
		return digits, false
	}
	return digits, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CurrencyTolerance is the absolute ZAR-cents tolerance from the tolerances
// table: |found - expected| <= 0.05.
const CurrencyTolerance = 0.05

// PercentageTolerance is the absolute percentage-point tolerance:
// |found - expected| <= 0.01.
const PercentageTolerance = 0.01

// ValidateCurrency reports whether found matches expected within tolerance,
// plus a confidence in [0,1] computed as 1 - diff/tolerance.
func ValidateCurrency(found, expected float64) (bool, float64) {
	return validateNumeric(found, expected, CurrencyTolerance)
}

// ValidatePercentage reports whether found matches expected within
// tolerance, plus a confidence in [0,1].
func ValidatePercentage(found, expected float64) (bool, float64) {
	return validateNumeric(found, expected, PercentageTolerance)
}

func validateNumeric(found, expected, tolerance float64) (bool, float64) {
	diff := found - expected
	if diff < 0 {
		diff = -diff
	}
	conf := 1 - diff/tolerance
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	// The epsilon keeps a difference of exactly the tolerance valid despite
	// float rounding (90640.62 - 90640.57 evaluates to 0.0500000000029).
	return diff <= tolerance+1e-9, conf
}

// ValidateReference reports exact string equality after whitespace
// stripping, with confidence 1.0 on match and 0.0 otherwise.
func ValidateReference(found, expected string) (bool, float64) {
	f := strings.TrimSpace(found)
	e := strings.TrimSpace(expected)
	if f == e {
		return true, 1.0
	}
	return false, 0.0
}

// ValidateAccount applies an edit-distance tolerance of 1 for OCR-sourced
// boxes and 0 (exact) for digital ones, with confidence
// 1 - editDistance/len(expected).
func ValidateAccount(found, expected string, fromOCR bool) (bool, float64) {
	dist := levenshtein(found, expected)
	maxDist := 0
	if fromOCR {
		maxDist = 1
	}
	conf := 1.0
	if len(expected) > 0 {
		conf = 1 - float64(dist)/float64(len(expected))
		if conf < 0 {
			conf = 0
		}
	}
	return dist <= maxDist, conf
}

// levenshtein computes the classic edit-distance DP matrix, grounded on
// bosocmputer-account_ocr_gemini's levenshteinDistance implementation.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		curr[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

// Levenshtein exports the edit-distance helper that ValidateAccount uses.
func Levenshtein(a, b string) int { return levenshtein(a, b) }

// CombineCurrencyFragments joins adjacent currency text fragments found
// within 30px of each other on the same line, e.g. "R147" + "126,58" ->
// "R147 126,58" (which ParseCurrency reads as 147126.58), as used by the
// zone-fallback step.
func CombineCurrencyFragments(a, b string) string {
	return strings.TrimSpace(a) + " " + strings.TrimSpace(b)
}
