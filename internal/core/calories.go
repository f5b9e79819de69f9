// Package core provides calorie text sanitizing, validation and aggregation.
//
// Calorie fields are free text until a balance is computed. Sign characters and
// whitespace are noise and are stripped everywhere in the value; text that looks
// like scientific notation ("1e3") is rejected; any other text that does not parse
// as a number counts as zero.
package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var scientificNotation = regexp.MustCompile(`[0-9]+[eE][0-9]+`)

// Sanitize removes every '+', '-' and whitespace rune from raw, wherever it occurs.
//
// Examples:
//
//	Sanitize("+1 2-3") -> "123"
//	Sanitize(" 250 ")  -> "250"
func Sanitize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '+' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// InvalidFragment returns the first digit-e-digit run found in s.
func InvalidFragment(s string) (string, bool) {
	loc := scientificNotation.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return s[loc[0]:loc[1]], true
}

// IsInvalid reports whether s contains a digit-e-digit run such as "1e3" or "2E10".
func IsInvalid(s string) bool {
	_, bad := InvalidFragment(s)
	return bad
}

// ParseCalories converts sanitized text to a number. Empty text and text that is
// not a plain decimal number both yield zero.
func ParseCalories(sanitized string) float64 {
	return parseDecimal(sanitized)
}

// ParseBudget converts the budget text to a number. Unlike calorie fields the
// budget is only trimmed, not sign-stripped, and exponents are allowed ("2e3"
// is 2000, as a browser number field reads it). Unparsable text, NaN and
// infinities yield zero.
func ParseBudget(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseDecimal accepts digits with at most one decimal point ("12", "12.5",
// ".5", "5."). Hex, exponents, "Inf" and "NaN" spellings are rejected.
func parseDecimal(s string) float64 {
	if s == "" || strings.Count(s, ".") > 1 {
		return 0
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return 0
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SumCalories sanitizes, validates and adds up raw calorie texts in order. It
// stops at the first invalid value and returns an *InvalidCalorieTextError naming
// the offending fragment.
func SumCalories(raws []string) (float64, error) {
	var total float64
	for _, raw := range raws {
		clean := Sanitize(raw)
		if frag, bad := InvalidFragment(clean); bad {
			return 0, &InvalidCalorieTextError{Fragment: frag}
		}
		total += ParseCalories(clean)
	}
	return total, nil
}

// FormatCalories renders v with the shortest representation that round-trips.
func FormatCalories(v float64) string {
	if v == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
