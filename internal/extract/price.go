package extract

import (
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice strips every non-digit from text and parses what is left, so
// "19,800원" yields 19800. It reports false when no digits remain.
func ParsePrice(text string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0, false
	}

	price, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return price, true
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
