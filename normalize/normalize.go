// Package normalize turns captured follower-count text such as "12.3K",
// "1,5 M" or "150.000" into exact integers.
package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Spec is a captured numeral plus an optional suffix token, as produced by a
// pattern match.
type Spec struct {
	Digits string
	Suffix string
}

// Value normalizes the spec.
func (s Spec) Value() int64 {
	return Normalize(s.Digits, s.Suffix)
}

// Multiplier returns the magnitude for a suffix token: K, M or B in any case.
// Any other token ("followers", "likes", "") has no magnitude and returns 1.
func Multiplier(suffix string) int64 {
	switch strings.ToUpper(strings.TrimSpace(suffix)) {
	case "K":
		return 1_000
	case "M":
		return 1_000_000
	case "B":
		return 1_000_000_000
	}
	return 1
}

// Normalize converts digits and an optional suffix into a count.
//
// With a magnitude suffix the separators are decimal: a comma reads as a dot
// and, when several remain, only the last one is the decimal point
// ("1.234.5" + "M" = 1234500000). Without one, every comma and dot is a
// thousands separator ("150.000" = 150000). A magnitude letter attached to
// the digits ("12.3K") counts when suffix carries none.
//
// The result is truncated, never negative, and saturates at math.MaxInt64.
func Normalize(digits, suffix string) int64 {
	digits = strings.TrimSpace(digits)
	mult := Multiplier(suffix)
	if mult == 1 {
		digits, mult = splitAttached(digits)
	}

	if mult == 1 {
		return parseWhole(digits)
	}
	return parseScaled(digits, mult)
}

// splitAttached strips a trailing K/M/B letter from digits and returns its
// multiplier.
func splitAttached(digits string) (string, int64) {
	trimmed := strings.TrimRight(digits, " ")
	if trimmed == "" {
		return digits, 1
	}
	last := trimmed[len(trimmed)-1:]
	if m := Multiplier(last); m != 1 {
		return strings.TrimSpace(trimmed[:len(trimmed)-1]), m
	}
	return digits, 1
}

// parseWhole drops every separator and reads the rest as an integer.
func parseWhole(digits string) int64 {
	var b strings.Builder
	for _, r := range digits {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := strings.TrimLeft(b.String(), "0")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return n
}

// parseScaled reads digits as a decimal with the last separator as the
// decimal point, then applies mult.
func parseScaled(digits string, mult int64) int64 {
	var b strings.Builder
	for _, r := range digits {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteByte('.')
		}
	}
	s := b.String()
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = strings.ReplaceAll(s[:i], ".", "") + s[i:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	w := parseWhole(whole)
	if w > math.MaxInt64/mult {
		return math.MaxInt64
	}
	total := w * mult

	// Fractional part in integer arithmetic: mult has at most 9 zeros, so
	// digits beyond that cannot contribute after truncation.
	places := decimalPlaces(mult)
	if len(frac) > places {
		frac = frac[:places]
	}
	if frac != "" {
		f, err := strconv.ParseInt(frac, 10, 64)
		if err == nil {
			for i := len(frac); i < places; i++ {
				f *= 10
			}
			if total > math.MaxInt64-f {
				return math.MaxInt64
			}
			total += f
		}
	}
	return total
}

func decimalPlaces(mult int64) int {
	switch mult {
	case 1_000:
		return 3
	case 1_000_000:
		return 6
	case 1_000_000_000:
		return 9
	}
	return 0
}
