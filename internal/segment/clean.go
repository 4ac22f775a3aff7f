package segment

import (
	"regexp"
	"strings"
)

// space matches every rune unicode.IsSpace accepts. RE2's \s is ASCII only
// and leaves out \v.
const space = `\s\v\x{85}\p{Z}`

var (
	emphasisPattern     = regexp.MustCompile("[*`_]+")
	leadingMarkPattern  = regexp.MustCompile(`^[` + space + `\-#•]+`)
	whitespacePattern   = regexp.MustCompile(`[` + space + `]+`)
	speechStripPattern  = regexp.MustCompile(`[()\[\]{}:]`)
	trailingDotsPattern = regexp.MustCompile(`[.` + space + `]+$`)
)

// Clean removes Markdown decoration from a line: leading list and heading
// markers, emphasis asterisks, backticks and underscores. Whitespace runs
// collapse to one space. Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = emphasisPattern.ReplaceAllString(s, "")
	s = leadingMarkPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SpeechText prepares cleaned text for a speech synthesizer. Brackets and
// colons are dropped and trailing periods trimmed.
func SpeechText(s string) string {
	s = speechStripPattern.ReplaceAllString(Clean(s), "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = trailingDotsPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ImagePrompt derives the image subject for a line: the first token of its
// cleaned text, split on colon, dash or comma, lowercased.
func ImagePrompt(r Record) string {
	text := r.Text
	if r.Kind == KindItem && r.Name != "" {
		text = r.Name
	}
	text = Clean(text)
	if i := strings.IndexAny(text, ":-,"); i >= 0 {
		text = text[:i]
	}
	return strings.ToLower(strings.TrimSpace(text))
}
