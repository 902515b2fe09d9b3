// Package core provides the travel expense domain model.
//
// This file contains helpers for parsing amounts typed in German or English
// notation and for formatting them the way the reports print them.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a user supplied decimal string to a float.
//
// Both "1234.56" and "1.234,56" are accepted. When a string contains both
// separators the last one is the decimal separator; a single comma is always a
// decimal separator. Empty input is zero; negative values are rejected.
//
// Examples:
//
//	ParseAmount("12,5")     -> 12.5
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1,234.56") -> 1234.56
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	if strings.Count(s, ".") > 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatDecimal renders v with a fixed number of decimals and the given
// thousands and decimal separators.
func FormatDecimal(v float64, decimals int, thousandsSep, decimalSep string) string {
	neg := v < 0
	if neg {
		v = -v
	}
	raw := strconv.FormatFloat(v, 'f', decimals, 64)
	intPart, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	if neg && strings.Trim(raw, "0.") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousandsSep)
		}
		b.WriteRune(r)
	}
	if decimals > 0 {
		b.WriteString(decimalSep)
		b.WriteString(frac)
	}
	return b.String()
}

// FormatEuro formats an amount in de-DE notation, e.g. "1.234,56 €".
func FormatEuro(v float64) string {
	return FormatDecimal(v, 2, ".", ",") + " €"
}
