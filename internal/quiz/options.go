package quiz

import "strings"

// LetterToIndex maps "A".."Z" (any case) to 0..25.
func LetterToIndex(letter string) (int, bool) {
	letter = strings.TrimSpace(letter)
	if len(letter) != 1 {
		return -1, false
	}
	c := letter[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	}
	return -1, false
}

// IndexToLetter is the inverse of LetterToIndex.
func IndexToLetter(i int) string {
	if i < 0 || i >= 26 {
		return ""
	}
	return string(rune('A' + i))
}

// OptionIndex resolves an option reference to its position in ex.Options.
// A single letter is tried first; otherwise the reference must equal one of
// the option texts (whitespace-trimmed).
func (e Exercise) OptionIndex(ref string) (int, bool) {
	if i, ok := LetterToIndex(ref); ok && i < len(e.Options) {
		return i, true
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, false
	}
	for i, opt := range e.Options {
		if strings.TrimSpace(opt) == ref {
			return i, true
		}
	}
	return -1, false
}

// CorrectIndex resolves the exercise's designated correct option.
func (e Exercise) CorrectIndex() (int, bool) {
	return e.OptionIndex(e.CorrectOption)
}
