package prompts

import "unicode/utf8"

// MaxContentChars bounds the assignment text placed in any prompt.
const MaxContentChars = 100_000

// CapContent keeps the first max characters of s without splitting a rune.
func CapContent(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
