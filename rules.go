package bizobj

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// NotBlank rejects empty strings. Values are trimmed before rules run, so a
// whitespace-only string is rejected as well.
func NotBlank() Rule {
	return func(v any) bool {
		s, ok := v.(string)
		return !ok || s != ""
	}
}

// MaxLength rejects strings longer than n characters.
func MaxLength(n int) Rule {
	return func(v any) bool {
		s, ok := v.(string)
		return !ok || utf8.RuneCountInString(s) <= n
	}
}

// Matches rejects strings that do not match pattern. It panics if pattern
// does not compile, like regexp.MustCompile.
func Matches(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return func(v any) bool {
		s, ok := v.(string)
		return !ok || re.MatchString(s)
	}
}

// OneOf rejects strings outside allowed. Comparison ignores case.
func OneOf(allowed ...string) Rule {
	lower := make([]string, len(allowed))
	for i, a := range allowed {
		lower[i] = strings.ToLower(a)
	}
	return func(v any) bool {
		s, ok := v.(string)
		return !ok || slices.Contains(lower, strings.ToLower(s))
	}
}

// Min rejects numbers below n.
func Min(n float64) Rule {
	return func(v any) bool {
		f, ok := toFloat64(v)
		return !ok || f >= n
	}
}

// Max rejects numbers above n.
func Max(n float64) Rule {
	return func(v any) bool {
		f, ok := toFloat64(v)
		return !ok || f <= n
	}
}
