package codec

import "unicode/utf8"

// ExcerptLength is the default number of runes kept by Excerpt.
const ExcerptLength = 100

const ellipsis = "..."

// Excerpt shortens s to at most n runes, appending "..." when anything was
// cut. Trailing spaces before the ellipsis are dropped.
func Excerpt(s string, n int) string {
	if n <= 0 {
		n = ExcerptLength
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			s = s[:pos]
			break
		}
		i++
	}
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s + ellipsis
}
