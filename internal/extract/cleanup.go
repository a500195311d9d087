package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxBulletRunes bounds the display length of a bullet, ellipsis included.
const MaxBulletRunes = 150

var (
	leadingConjunctionRe = regexp.MustCompile(`(?i)^(?:and|also|then|so)\b[\s,]*`)
	// Only the pronoun part goes: "I will test" keeps "will test".
	leadingPronounRe = regexp.MustCompile(`(?i)^(?:i\s+am|i'm|im|i\s+have|i've|ive|i)\b\s*`)
)

// CleanBullet normalizes a clause for display as a bullet.
func CleanBullet(text string) string {
	s := strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " "))
	for {
		next := leadingConjunctionRe.ReplaceAllString(s, "")
		next = leadingPronounRe.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimRight(s, " .,;:")
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	return truncateRunes(s, MaxBulletRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-3]), " ") + "..."
}

// appendDistinct appends line unless an equal line (ignoring case) is
// already present.
func appendDistinct(lines []string, line string) []string {
	for _, existing := range lines {
		if strings.EqualFold(existing, line) {
			return lines
		}
	}
	return append(lines, line)
}
