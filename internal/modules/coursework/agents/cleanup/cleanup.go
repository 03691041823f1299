// Package cleanup repairs text recovered from OCR and mis-decoded documents.
package cleanup

import (
	"regexp"
	"strings"
)

// UTF-8 punctuation read back as Windows-1252.
var mojibake = strings.NewReplacer(
	"â€™", "’",
	"â€˜", "‘",
	"â€œ", "“",
	"â€\u009d", "”",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	"Â\u00a0", " ",
	"ï»¿", "",
	"\ufeff", "",
	"\u00a0", " ",
)

var (
	spaceRuns   = regexp.MustCompile(` {2,}`)
	trailing    = regexp.MustCompile(`[ \t]+\n`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ToValidUTF8(s, "")
	s = mojibake.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f):
			return -1
		}
		return r
	}, s)
	s = spaceRuns.ReplaceAllString(s, " ")
	s = trailing.ReplaceAllString(s, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
