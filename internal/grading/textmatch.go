package grading

import (
	"strings"
	"unicode"
)

// normalize trims s and collapses every internal whitespace run to one space.
// Case and punctuation are preserved: units such as "mA" and "MA" differ.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
